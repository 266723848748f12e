package widget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	staker = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	casual = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

const recipient = "0x36e1330847b5a8362ee11921637E92bA83249742"

type harness struct {
	host    *fakeHost
	factory *fakeFactory
	checker *fakeChecker
	ctrl    *FeeController

	mu      sync.Mutex
	changes []string
	ready   int
}

func newHarness() *harness {
	h := &harness{
		factory: &fakeFactory{},
		checker: &fakeChecker{eligible: map[common.Address]bool{staker: true}},
	}
	h.host = &fakeHost{factory: h.factory}
	h.ctrl = NewFeeController(Config{
		Host:      h.host,
		Checker:   h.checker,
		Fees:      FeeSettings{DefaultPercent: decimal.RequireFromString("0.1"), Recipient: recipient},
		ScriptSrc: "https://example.invalid/widget.js",
		Element:   "debridgeWidget",
		Referral:  32608,
		OnFeeChange: func(p decimal.Decimal) {
			h.mu.Lock()
			h.changes = append(h.changes, p.String())
			h.mu.Unlock()
		},
		OnReady: func(Widget) {
			h.mu.Lock()
			h.ready++
			h.mu.Unlock()
		},
	})
	return h
}

func (h *harness) feeChanges() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.changes...)
}

func addr(a common.Address) *common.Address { return &a }

func TestMountWithoutWallet(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.ctrl.Mount(context.Background(), nil))
	require.Equal(t, Ready, h.ctrl.State())

	w := h.factory.last()
	require.NotNil(t, w)
	require.Empty(t, w.percents(), "no wallet: default fee is already in the params")
	require.Equal(t, []string{"0.1"}, h.feeChanges())
	require.True(t, w.hooked(EventOrder))
	require.True(t, w.hooked(EventBridge))
	require.Zero(t, h.checker.count())

	p := h.factory.params[0]
	require.Equal(t, "0.1", p.AffiliateFeePercent)
	require.Equal(t, recipient, p.AffiliateFeeRecipient)
	require.Equal(t, "32608", p.Referral)
	require.Equal(t, "debridgeWidget", p.Element)
	require.Equal(t, 780, p.Height)
	require.Equal(t, "all", p.SupportedChains.InputChains["32769"])
	require.Len(t, p.SupportedChains.OutputChains, 10)
}

func TestMountEligibleWallet(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.ctrl.Mount(context.Background(), addr(staker)))
	w := h.factory.last()
	require.Equal(t, []string{"0"}, w.percents())
	require.Equal(t, recipient, w.fees[0].EVM.Recipient)
	require.Equal(t, []string{"0"}, h.feeChanges())
	require.Equal(t, 1, h.ready)
}

func TestAddressChangeReprices(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.ctrl.Mount(ctx, addr(casual)))

	h.ctrl.SetAddress(ctx, addr(staker))
	h.ctrl.SetAddress(ctx, addr(staker)) // unchanged, ignored
	h.ctrl.SetAddress(ctx, addr(casual))

	require.Equal(t, []string{"0.1", "0", "0.1"}, h.factory.last().percents())
	require.Equal(t, 3, h.checker.count())
}

func TestDisconnectResetsWithoutCheck(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.ctrl.Mount(ctx, addr(staker)))
	require.Equal(t, 1, h.checker.count())

	h.ctrl.SetAddress(ctx, nil)

	require.Equal(t, []string{"0", "0.1"}, h.factory.last().percents())
	require.Equal(t, 1, h.checker.count())
	require.Equal(t, []string{"0", "0.1"}, h.feeChanges())
}

func TestRecordAddressDefersFeeUpdate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.ctrl.Mount(ctx, addr(casual)))

	toStaker := h.ctrl.RecordAddress(addr(staker))
	require.Equal(t, staker, *h.ctrl.Address())
	require.Nil(t, h.ctrl.RecordAddress(addr(staker)))

	disconnect := h.ctrl.RecordAddress(nil)
	require.Nil(t, h.ctrl.Address())
	require.Equal(t, 1, h.checker.count(), "nothing runs until the update is applied")

	toStaker(ctx)
	disconnect(ctx)
	require.Equal(t, []string{"0.1", "0", "0.1"}, h.factory.last().percents())
	require.Equal(t, 2, h.checker.count())
	require.Nil(t, h.ctrl.Address())
}

func TestEligibilityFailurePushesDefault(t *testing.T) {
	h := newHarness()
	h.checker.err = errors.New("rpc down")

	require.NoError(t, h.ctrl.Mount(context.Background(), addr(staker)))
	require.Equal(t, []string{"0.1"}, h.factory.last().percents())
}

func TestAddressBeforeReadyIsUsedForFirstFee(t *testing.T) {
	h := newHarness()
	h.factory.gate = make(chan struct{})
	ctx := context.Background()

	done := make(chan error)
	go func() { done <- h.ctrl.Mount(ctx, nil) }()

	require.Eventually(t, func() bool { return h.ctrl.State() == Initializing }, time.Second, time.Millisecond)
	h.ctrl.SetAddress(ctx, addr(staker))
	close(h.factory.gate)

	require.NoError(t, <-done)
	require.Equal(t, []string{"0"}, h.factory.last().percents())
}

func TestScriptLoadFailureIsTerminal(t *testing.T) {
	h := newHarness()
	h.host.loadErr = errors.New("blocked by CSP")

	err := h.ctrl.Mount(context.Background(), addr(staker))
	require.Error(t, err)
	require.Equal(t, Unloaded, h.ctrl.State())
	require.Nil(t, h.factory.last())
	require.Nil(t, h.ctrl.Widget())
}

func TestMissingNamespace(t *testing.T) {
	h := newHarness()
	h.host.factory = nil

	err := h.ctrl.Mount(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoNamespace)
	require.Equal(t, Unloaded, h.ctrl.State())
}

func TestTeardownDuringInitDiscardsWidget(t *testing.T) {
	h := newHarness()
	h.factory.gate = make(chan struct{})
	ctx := context.Background()

	done := make(chan error)
	go func() { done <- h.ctrl.Mount(ctx, addr(staker)) }()

	require.Eventually(t, func() bool { return h.ctrl.State() == Initializing }, time.Second, time.Millisecond)
	h.ctrl.Teardown(ctx)
	close(h.factory.gate)

	require.NoError(t, <-done)
	w := h.factory.last()
	require.Equal(t, 1, w.destroyed)
	require.Empty(t, w.percents())
	require.Zero(t, h.checker.count())
	require.Equal(t, Destroyed, h.ctrl.State())
	require.Nil(t, h.ctrl.Widget())
}

func TestRemountDestroysPrevious(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.ctrl.Mount(ctx, nil))
	first := h.factory.last()
	require.NoError(t, h.ctrl.Mount(ctx, nil))

	require.Equal(t, 1, first.destroyed, "destroy errors are logged, not returned")
	require.NotSame(t, first, h.factory.last())
	require.Equal(t, Ready, h.ctrl.State())
	require.EqualValues(t, 1, h.host.loads.Load(), "script stays loaded across mounts")
}

func TestTeardownWhenIdle(t *testing.T) {
	h := newHarness()
	h.ctrl.Teardown(context.Background())
	require.Equal(t, Unloaded, h.ctrl.State())
	require.Zero(t, h.host.clears.Load())
}

func TestConcurrentLoadsShareOneRequest(t *testing.T) {
	host := &fakeHost{loadGate: make(chan struct{})}
	l := NewScriptLoader(host)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Load(context.Background(), "a.js")
		}()
	}

	require.Eventually(t, func() bool { return host.loads.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(host.loadGate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, host.loads.Load())
	require.True(t, l.IsLoaded("a.js"))

	require.NoError(t, l.Load(context.Background(), "a.js"))
	require.EqualValues(t, 1, host.loads.Load())
}

func TestFailedLoadIsNotCached(t *testing.T) {
	host := &fakeHost{loadErr: errors.New("404")}
	l := NewScriptLoader(host)

	require.Error(t, l.Load(context.Background(), "a.js"))
	require.False(t, l.IsLoaded("a.js"))

	host.loadErr = nil
	require.NoError(t, l.Load(context.Background(), "a.js"))
	require.EqualValues(t, 2, host.loads.Load())
}

func TestLoadCallerCancel(t *testing.T) {
	host := &fakeHost{loadGate: make(chan struct{})}
	l := NewScriptLoader(host)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error)
	go func() { errc <- l.Load(ctx, "a.js") }()

	require.Eventually(t, func() bool { return host.loads.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)

	close(host.loadGate)
	require.Eventually(t, func() bool { return l.IsLoaded("a.js") }, time.Second, time.Millisecond)
}
