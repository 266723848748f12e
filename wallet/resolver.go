package wallet

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// HasActiveAccounts reports whether the provider exposes at least one account
// to eth_accounts. Errors count as inactive. Providers without request fall
// back to legacy send, then to selectedAddress.
func HasActiveAccounts(ctx context.Context, p any) bool {
	if rp, ok := AsProvider(p); ok {
		raw, err := rp.Request(ctx, "eth_accounts")
		if err != nil {
			log.Debug().Err(err).Msg("Failed to check accounts")
			return false
		}
		return hasAccounts(raw)
	}

	// Legacy support
	if ls, ok := AsLegacySender(p); ok {
		raw, err := ls.Send(ctx, "eth_accounts", nil)
		if err != nil {
			log.Debug().Err(err).Msg("Legacy eth_accounts failed")
		} else if hasAccounts(raw) {
			return true
		}
	}
	if la, ok := AsLegacyAccount(p); ok {
		return la.SelectedAddress() != ""
	}
	return false
}

func hasAccounts(raw json.RawMessage) bool {
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		log.Debug().Err(err).Msg("Unexpected eth_accounts result")
		return false
	}
	return len(accounts) > 0
}

// FindActiveWallet returns the first wallet holding accounts, in discovery
// order. If none does, the first wallet is returned so the user can connect
// manually. Nil only for an empty list.
func FindActiveWallet(ctx context.Context, wallets []DetectedWallet) *DetectedWallet {
	for i := range wallets {
		if HasActiveAccounts(ctx, wallets[i].Provider) {
			log.Debug().Msgf("Found active wallet: %s", wallets[i].Name)
			w := wallets[i]
			return &w
		}
	}

	if len(wallets) > 0 {
		log.Debug().Msgf("No active wallet found, using first available: %s", wallets[0].Name)
		w := wallets[0]
		return &w
	}

	return nil
}

// ActiveState holds at most one active wallet.
type ActiveState struct {
	mu     sync.RWMutex
	active *DetectedWallet
}

func (s *ActiveState) Get() *DetectedWallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Set replaces the active wallet and reports whether its identity changed.
func (s *ActiveState) Set(w *DetectedWallet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := !SameWallet(s.active, w)
	s.active = w
	return changed
}

func SameWallet(a, b *DetectedWallet) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UUID == b.UUID
}
