package wallet

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DetectedWallet is recreated on every detection pass. UUID is the identity key.
type DetectedWallet struct {
	Provider any
	Name     string
	Icon     string
	RDNS     string
	UUID     string
}

// ProviderInfo is the self-reported EIP-6963 metadata.
type ProviderInfo struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Icon string `json:"icon"`
	RDNS string `json:"rdns"`
}

type Announcement struct {
	Info     ProviderInfo
	Provider any
}

// Announcer dispatches eip6963:requestProvider and delivers every
// eip6963:announceProvider to fn until stop is called.
type Announcer interface {
	RequestProviders(fn func(Announcement)) (stop func())
}

// Globals resolves a dotted global binding path such as "phantom.ethereum".
// A missing binding is (nil, nil).
type Globals interface {
	Lookup(ctx context.Context, path string) (any, error)
}

// Environment is the page a detector probes. A nil Environment means there is
// no browser window.
type Environment interface {
	Announcer
	Globals
}

type LegacyBinding struct {
	Key  string
	Path string // nested path, defaults to Key
	Name string
	Icon string
	RDNS string
}

var LegacyBindings = []LegacyBinding{
	{
		Key:  "ethereum",
		Name: "MetaMask",
		Icon: "https://app.debridge.com/assets/images/dln-details/wallet/metamask.svg",
		RDNS: "io.metamask",
	},
	{
		Key:  "zilPay",
		Name: "ZilPay",
		Icon: "https://zilpay.io/favicon.ico",
		RDNS: "io.zilpay",
	},
	{
		Key:  "phantom",
		Path: "phantom.ethereum", // Phantom EVM provider
		Name: "Phantom",
		Icon: "https://app.debridge.com/assets/images/dln-details/wallet/phenom.svg",
		RDNS: "app.phantom",
	},
	{
		Key:  "coinbaseWallet",
		Name: "Coinbase Wallet",
		Icon: "https://app.debridge.com/assets/images/dln-details/wallet/coinbase.svg",
		RDNS: "com.coinbase.wallet",
	},
	{
		Key:  "trustWallet",
		Name: "Trust Wallet",
		Icon: "https://app.debridge.com/assets/images/dln-details/wallet/trust.svg",
		RDNS: "com.trustwallet.app",
	},
}

const DefaultDiscoveryWindow = time.Second

// source is one discovery mechanism.
type source interface {
	discover(ctx context.Context) []DetectedWallet
}

type Detector struct {
	env    Environment
	window time.Duration
	legacy []LegacyBinding
}

func NewDetector(env Environment, window time.Duration) *Detector {
	if window <= 0 {
		window = DefaultDiscoveryWindow
	}
	return &Detector{env: env, window: window, legacy: LegacyBindings}
}

// DetectAllWallets never fails; it degrades to an empty result.
func (d *Detector) DetectAllWallets(ctx context.Context) []DetectedWallet {
	if d.env == nil {
		return []DetectedWallet{}
	}

	announced := (&broadcastSource{env: d.env, window: d.window}).discover(ctx)
	legacy := (&legacySource{env: d.env, bindings: d.legacy}).discover(ctx)

	all := append([]DetectedWallet{}, announced...)
	for _, lw := range legacy {
		if !knownWallet(announced, lw) {
			all = append(all, lw)
		}
	}

	names := make([]string, len(all))
	for i, w := range all {
		names[i] = w.Name
	}
	log.Debug().Strs("wallets", names).Msgf("Found %d wallets", len(all))

	return all
}

// DetectEVMWallets is DetectAllWallets restricted to EVM-capable providers.
func (d *Detector) DetectEVMWallets(ctx context.Context) []DetectedWallet {
	return FilterEVM(d.DetectAllWallets(ctx))
}

func FilterEVM(wallets []DetectedWallet) []DetectedWallet {
	evm := make([]DetectedWallet, 0, len(wallets))
	for _, w := range wallets {
		if IsEVMProvider(w.Provider) {
			evm = append(evm, w)
		}
	}
	return evm
}

func knownWallet(wallets []DetectedWallet, w DetectedWallet) bool {
	for _, k := range wallets {
		if k.RDNS == w.RDNS || k.Name == w.Name {
			return true
		}
	}
	return false
}

type broadcastSource struct {
	env    Announcer
	window time.Duration
}

func (s *broadcastSource) discover(ctx context.Context) []DetectedWallet {
	var mu sync.Mutex
	wallets := []DetectedWallet{}
	seen := map[string]bool{}

	stop := s.env.RequestProviders(func(a Announcement) {
		mu.Lock()
		defer mu.Unlock()

		if seen[a.Info.UUID] {
			return
		}
		seen[a.Info.UUID] = true
		wallets = append(wallets, DetectedWallet{
			Provider: a.Provider,
			Name:     a.Info.Name,
			Icon:     a.Info.Icon,
			RDNS:     a.Info.RDNS,
			UUID:     a.Info.UUID,
		})
	})

	t := time.NewTimer(s.window)
	select {
	case <-t.C:
	case <-ctx.Done():
		t.Stop()
	}
	stop()

	mu.Lock()
	defer mu.Unlock()
	return append([]DetectedWallet{}, wallets...)
}

type legacySource struct {
	env      Globals
	bindings []LegacyBinding
}

func (s *legacySource) discover(ctx context.Context) []DetectedWallet {
	wallets := []DetectedWallet{}
	for _, b := range s.bindings {
		p, err := s.probe(ctx, b)
		if err != nil {
			log.Debug().Err(err).Msgf("Failed to detect %s", b.Name)
			continue
		}
		if !looksLikeProvider(p) {
			continue
		}
		wallets = append(wallets, DetectedWallet{
			Provider: p,
			Name:     b.Name,
			Icon:     b.Icon,
			RDNS:     b.RDNS,
			UUID:     "legacy-" + b.Key,
		})
	}
	return wallets
}

func (s *legacySource) probe(ctx context.Context, b LegacyBinding) (p any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe %s panicked: %v", b.Key, r)
		}
	}()

	path := b.Path
	if path == "" {
		path = b.Key
	}
	return s.env.Lookup(ctx, path)
}

// MapGlobals is a static Globals backed by nested maps.
type MapGlobals map[string]any

func (g MapGlobals) Lookup(_ context.Context, path string) (any, error) {
	var cur any = map[string]any(g)
	for _, key := range strings.Split(path, ".") {
		var m map[string]any
		switch v := cur.(type) {
		case map[string]any:
			m = v
		case MapGlobals:
			m = v
		default:
			return nil, nil
		}
		next, ok := m[key]
		if !ok {
			return nil, nil
		}
		cur = next
	}
	return cur, nil
}
