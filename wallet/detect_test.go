package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testWindow = 30 * time.Millisecond

func names(ws []DetectedWallet) []string {
	n := make([]string, len(ws))
	for i, w := range ws {
		n[i] = w.Name
	}
	return n
}

func TestDetectNoEnvironment(t *testing.T) {
	d := NewDetector(nil, testWindow)
	start := time.Now()
	ws := d.DetectAllWallets(context.Background())
	require.Empty(t, ws)
	require.NotNil(t, ws)
	require.Less(t, time.Since(start), testWindow)
}

func TestDetectEmptyAfterWindow(t *testing.T) {
	env := &fakeEnv{MapGlobals: MapGlobals{}}
	d := NewDetector(env, testWindow)

	ws := d.DetectAllWallets(context.Background())
	require.Empty(t, ws)
	require.Equal(t, 1, env.requests)
	require.Equal(t, 1, env.stopped)
}

func TestDetectMergeAndDedup(t *testing.T) {
	mm := &fakeProvider{}
	rabby := &fakeProvider{}
	env := &fakeEnv{
		announcements: []Announcement{
			{Info: ProviderInfo{UUID: "u-1", Name: "MetaMask", RDNS: "io.metamask"}, Provider: mm},
			{Info: ProviderInfo{UUID: "u-2", Name: "Rabby", RDNS: "io.rabby"}, Provider: rabby},
			{Info: ProviderInfo{UUID: "u-1", Name: "MetaMask", RDNS: "io.metamask"}, Provider: mm},
		},
		MapGlobals: MapGlobals{
			"ethereum": &fakeProvider{},                          // same rdns as announced MetaMask
			"zilPay":   &legacyProvider{},                        // legacy only
			"phantom":  map[string]any{"ethereum": metaMaskOnly{}}, // nested path
			"coinbaseWallet": "not a provider",
		},
	}

	ws := NewDetector(env, testWindow).DetectAllWallets(context.Background())
	require.Equal(t, []string{"MetaMask", "Rabby", "ZilPay", "Phantom"}, names(ws))
	require.Equal(t, "legacy-zilPay", ws[2].UUID)
	require.Equal(t, "legacy-phantom", ws[3].UUID)
	require.Same(t, mm, ws[0].Provider)
}

func TestDetectLegacyDedupByName(t *testing.T) {
	env := &fakeEnv{
		announcements: []Announcement{
			{Info: ProviderInfo{UUID: "u-9", Name: "ZilPay", RDNS: "com.zilpay.other"}, Provider: &fakeProvider{}},
		},
		MapGlobals: MapGlobals{"zilPay": &fakeProvider{}},
	}

	ws := NewDetector(env, testWindow).DetectAllWallets(context.Background())
	require.Len(t, ws, 1)
	require.Equal(t, "u-9", ws[0].UUID)
}

func TestDetectLookupFailuresAreOmitted(t *testing.T) {
	env := &fakeEnv{
		MapGlobals: MapGlobals{
			"ethereum":    &fakeProvider{},
			"zilPay":      &fakeProvider{},
			"trustWallet": &fakeProvider{},
		},
		lookupErr: map[string]error{"zilPay": errors.New("blocked")},
		panicOn:   "trustWallet",
	}

	ws := NewDetector(env, testWindow).DetectAllWallets(context.Background())
	require.Equal(t, []string{"MetaMask"}, names(ws))
}

func TestDetectContextCancelEndsWindow(t *testing.T) {
	env := &fakeEnv{MapGlobals: MapGlobals{}}
	d := NewDetector(env, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ws := d.DetectAllWallets(ctx)
	require.Empty(t, ws)
}

func TestFilterEVM(t *testing.T) {
	ws := []DetectedWallet{
		{Name: "request", Provider: &fakeProvider{}},
		{Name: "send", Provider: &legacyProvider{}},
		{Name: "marker", Provider: metaMaskOnly{}},
		{Name: "connected", Provider: connectedOnly{}},
		{Name: "string", Provider: "nope"},
		{Name: "nil"},
	}
	require.Equal(t, []string{"request", "send", "marker", "connected"}, names(FilterEVM(ws)))
}
