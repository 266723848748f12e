package staking

import (
	"context"
	"fmt"
	"math/big"

	"github.com/AlexNa-Holdings/stakezil/cmn"
	"github.com/AlexNa-Holdings/stakezil/eth"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// poolReader returns the ZIL-denominated stake of user in the pool behind proxy.
type poolReader func(ctx context.Context, b eth.Backend, user, proxy common.Address) (decimal.Decimal, error)

var poolReaders = map[cmn.PoolKind]poolReader{
	cmn.POOL_LIQUID:     readLiquidStake,
	cmn.POOL_DELEGATION: readDelegatedStake,
}

var lstAddressReads = []readStrategy{
	{method: "getLST"},
	{method: "lst"},
}

var delegatedAmountReads = []readStrategy{
	{method: "getDelegatedAmount", asCaller: true},
	{method: "stakedOf", withUser: true},
}

// readLiquidStake values the user's LST balance at the proxy's price.
// A proxy without a resolvable LST contributes zero.
func readLiquidStake(ctx context.Context, b eth.Backend, user, proxy common.Address) (decimal.Decimal, error) {
	v, err := readFirst(ctx, b, proxy, user, lstAddressReads)
	if err != nil {
		log.Debug().Err(err).Str("proxy", proxy.Hex()).Msg("liquid pool: no LST address")
		return decimal.Zero, nil
	}
	lst, ok := v.(common.Address)
	if !ok || lst == (common.Address{}) {
		return decimal.Zero, nil
	}

	var priceRaw, balanceRaw *big.Int
	decimals := defaultDecimals

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := readContract(gctx, b, &poolABI, proxy, common.Address{}, "getPrice")
		if err != nil {
			return err
		}
		priceRaw, err = asBigInt(v)
		return err
	})
	g.Go(func() error {
		v, err := readContract(gctx, b, &erc20ABI, lst, common.Address{}, "balanceOf", user)
		if err != nil {
			return err
		}
		balanceRaw, err = asBigInt(v)
		return err
	})
	g.Go(func() error {
		v, err := readContract(gctx, b, &erc20ABI, lst, common.Address{}, "decimals")
		if err != nil {
			log.Trace().Err(err).Str("lst", lst.Hex()).Msg("decimals unreadable, using 18")
			return nil
		}
		if d, ok := v.(uint8); ok {
			decimals = int(d)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return decimal.Zero, fmt.Errorf("liquid pool %s: %w", proxy.Hex(), err)
	}

	price := fromUnits(priceRaw, defaultDecimals)
	balance := fromUnits(balanceRaw, decimals)

	log.Trace().Str("lst", lst.Hex()).Str("price", price.String()).Str("balance", balance.String()).Msg("liquid pool: read")

	return balance.Mul(price), nil
}

// readDelegatedStake reads the delegated amount, falling back to stakedOf(user).
func readDelegatedStake(ctx context.Context, b eth.Backend, user, proxy common.Address) (decimal.Decimal, error) {
	v, err := readFirst(ctx, b, proxy, user, delegatedAmountReads)
	if err != nil {
		return decimal.Zero, fmt.Errorf("delegation pool %s: %w", proxy.Hex(), err)
	}
	amount, err := asBigInt(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("delegation pool %s: %w", proxy.Hex(), err)
	}
	return fromUnits(amount, defaultDecimals), nil
}
