package staking

import (
	"context"
	"strconv"

	"github.com/AlexNa-Holdings/stakezil/cmn"
	"github.com/AlexNa-Holdings/stakezil/eth"
	"github.com/AlexNa-Holdings/stakezil/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const DisplayPlaces = 6

type PoolStakeReading struct {
	Pool      string          `json:"pool"`
	Proxy     common.Address  `json:"proxy"`
	StakedZil decimal.Decimal `json:"stakedZil"`
}

type EligibilityResult struct {
	Eligible       bool            `json:"eligible"`
	TotalStakedZil decimal.Decimal `json:"total"`
}

type StakeReport struct {
	Total   decimal.Decimal    `json:"total"`
	PerPool []PoolStakeReading `json:"perPool"`
	ChainId uint64             `json:"chainId"`
}

// Oracle decides zero-fee eligibility from on-chain stake. It holds no state
// between calls and only issues read calls.
type Oracle struct {
	backend   eth.Backend
	pools     []cmn.EligibilityPool
	threshold decimal.Decimal
}

func NewOracle(b eth.Backend, pools []cmn.EligibilityPool, threshold decimal.Decimal) *Oracle {
	return &Oracle{backend: b, pools: pools, threshold: threshold}
}

func (o *Oracle) Threshold() decimal.Decimal {
	return o.threshold
}

// IsEligibleForZeroFee compares the full-precision total against the
// threshold. The reported total is rounded for display. The only error is a
// cancelled ctx.
func (o *Oracle) IsEligibleForZeroFee(ctx context.Context, user common.Address) (EligibilityResult, error) {
	readings, total := o.readPools(ctx, user)
	if err := ctx.Err(); err != nil {
		return EligibilityResult{}, err
	}

	eligible := total.GreaterThanOrEqual(o.threshold)
	metrics.EligibilityChecks.WithLabelValues(strconv.FormatBool(eligible)).Inc()

	log.Debug().
		Str("user", user.Hex()).
		Int("pools", len(readings)).
		Str("total", total.String()).
		Bool("eligible", eligible).
		Msgf("eligibility: ≈ %s ZIL", cmn.FormatZil(total))

	return EligibilityResult{
		Eligible:       eligible,
		TotalStakedZil: total.Round(DisplayPlaces),
	}, nil
}

// GetStakedZilForAddress is the diagnostic variant exposing the per-pool
// breakdown. An unreadable chain id is reported as 0.
func (o *Oracle) GetStakedZilForAddress(ctx context.Context, user common.Address) (StakeReport, error) {
	var chainId uint64
	id, err := o.backend.ChainID(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("chain id unavailable")
	} else {
		chainId = id.Uint64()
	}

	readings, total := o.readPools(ctx, user)
	if err := ctx.Err(); err != nil {
		return StakeReport{}, err
	}

	for i := range readings {
		readings[i].StakedZil = readings[i].StakedZil.Round(DisplayPlaces)
	}

	return StakeReport{
		Total:   total.Round(DisplayPlaces),
		PerPool: readings,
		ChainId: chainId,
	}, nil
}

// readPools reads every pool concurrently and joins the results. A failed
// pool counts as zero.
func (o *Oracle) readPools(ctx context.Context, user common.Address) ([]PoolStakeReading, decimal.Decimal) {
	readings := make([]PoolStakeReading, len(o.pools))

	var g errgroup.Group
	for i, p := range o.pools {
		readings[i] = PoolStakeReading{Pool: p.Name, Proxy: p.Proxy, StakedZil: decimal.Zero}

		reader, ok := poolReaders[p.Kind]
		if !ok {
			log.Warn().Str("pool", p.Name).Msgf("unknown pool kind: %s", p.Kind)
			continue
		}

		g.Go(func() error {
			staked, err := reader(ctx, o.backend, user, p.Proxy)
			if err != nil {
				metrics.PoolReadFailures.WithLabelValues(p.Name).Inc()
				log.Warn().Err(err).Str("pool", p.Name).Msg("pool read failed, counting as zero")
				return nil
			}
			if staked.IsNegative() {
				staked = decimal.Zero
			}
			readings[i].StakedZil = staked
			return nil
		})
	}
	_ = g.Wait()

	total := decimal.Zero
	for _, r := range readings {
		total = total.Add(r.StakedZil)
	}
	return readings, total
}
