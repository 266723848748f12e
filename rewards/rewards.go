package rewards

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"
)

// Record is the last seen reward total of a wallet, plus the first one.
// Times are unix milliseconds; reward totals are base-unit integers.
type Record struct {
	LastVisitTime     int64  `json:"lastVisitTime"`
	TotalRewards      string `json:"totalRewards"`
	WalletAddress     string `json:"walletAddress"`
	FirstVisitTime    int64  `json:"firstVisitTime,omitempty"`
	FirstTotalRewards string `json:"firstTotalRewards,omitempty"`
}

// Store is keyed by wallet address. Get returns nil for an unknown wallet;
// Put is last-write-wins.
type Store interface {
	Get(ctx context.Context, walletAddress string) (*Record, error)
	Put(ctx context.Context, r Record) error
	Close() error
}

func storageKey(walletAddress string) string {
	return "rewards_tracking_" + walletAddress
}

// Track stores the current reward total, keeping the first visit fields of
// an existing record. A record without them falls back to its last values.
func Track(ctx context.Context, s Store, walletAddress string, total *big.Int, now time.Time) (*Record, error) {
	if total == nil || total.Sign() < 0 {
		return nil, fmt.Errorf("invalid reward total: %v", total)
	}

	ts := now.UnixMilli()
	r := Record{
		LastVisitTime:     ts,
		TotalRewards:      total.String(),
		WalletAddress:     walletAddress,
		FirstVisitTime:    ts,
		FirstTotalRewards: total.String(),
	}

	prev, err := s.Get(ctx, walletAddress)
	if err != nil {
		log.Warn().Err(err).Str("wallet", walletAddress).Msg("rewards: previous record unreadable, starting over")
	} else if prev != nil {
		r.FirstVisitTime = prev.FirstVisitTime
		if r.FirstVisitTime == 0 {
			r.FirstVisitTime = prev.LastVisitTime
		}
		r.FirstTotalRewards = prev.FirstTotalRewards
		if r.FirstTotalRewards == "" {
			r.FirstTotalRewards = prev.TotalRewards
		}
	}

	if err := s.Put(ctx, r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Open returns the store selected by backend: "file" (default) keeps a JSON
// file in folder, "redis" connects to redisURL.
func Open(backend, folder, redisURL string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(folder)
	case "redis":
		return NewRedisStore(redisURL)
	}
	return nil, fmt.Errorf("unknown rewards backend: %s", backend)
}
