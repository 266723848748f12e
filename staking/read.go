package staking

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/AlexNa-Holdings/stakezil/eth"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const defaultDecimals = 18

// readStrategy is one way of reading a value from a contract. Strategies for
// the same value are tried in order until one succeeds.
type readStrategy struct {
	method   string
	asCaller bool // send the call from the user address
	withUser bool // pass the user address as the only argument
}

func readContract(ctx context.Context, b eth.Backend, contract *abi.ABI, to, from common.Address, method string, args ...any) (any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	output, err := b.CallContract(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	results, err := contract.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("%s: unexpected result count: %d", method, len(results))
	}

	return results[0], nil
}

func readFirst(ctx context.Context, b eth.Backend, to, user common.Address, strategies []readStrategy) (any, error) {
	var errs []error
	for _, s := range strategies {
		var from common.Address
		var args []any
		if s.asCaller {
			from = user
		}
		if s.withUser {
			args = []any{user}
		}

		v, err := readContract(ctx, b, &poolABI, to, from, s.method, args...)
		if err == nil {
			return v, nil
		}
		log.Trace().Err(err).Str("contract", to.Hex()).Msgf("read %s failed", s.method)
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

func asBigInt(v any) (*big.Int, error) {
	n, ok := v.(*big.Int)
	if !ok || n == nil {
		return nil, fmt.Errorf("expected uint256, got %T", v)
	}
	return n, nil
}

// fromUnits converts a base-unit integer into a decimal amount.
func fromUnits(raw *big.Int, decimals int) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(decimals))
}
