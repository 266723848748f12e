package widget

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/AlexNa-Holdings/stakezil/staking"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type fakeWidget struct {
	mu        sync.Mutex
	fees      []AffiliateFee
	wallets   []ExternalWallet
	handlers  map[string][]func(args ...any)
	destroyed int
	feeErr    error
}

func (w *fakeWidget) On(event string, fn func(args ...any)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.handlers == nil {
		w.handlers = map[string][]func(args ...any){}
	}
	w.handlers[event] = append(w.handlers[event], fn)
}

func (w *fakeWidget) SetAffiliateFee(ctx context.Context, fee AffiliateFee) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.feeErr != nil {
		return w.feeErr
	}
	w.fees = append(w.fees, fee)
	return nil
}

func (w *fakeWidget) SetExternalEVMWallet(ctx context.Context, ew ExternalWallet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.wallets = append(w.wallets, ew)
	return nil
}

func (w *fakeWidget) Destroy(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyed++
	return errors.New("already gone")
}

func (w *fakeWidget) percents() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for _, f := range w.fees {
		out = append(out, f.EVM.Percent)
	}
	return out
}

func (w *fakeWidget) hooked(event string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.handlers[event]) > 0
}

type fakeFactory struct {
	mu      sync.Mutex
	gate    chan struct{} // when set, NewWidget waits for it
	params  []Params
	created []*fakeWidget
}

func (f *fakeFactory) NewWidget(ctx context.Context, p Params) (Widget, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWidget{}
	f.params = append(f.params, p)
	f.created = append(f.created, w)
	return w, nil
}

func (f *fakeFactory) last() *fakeWidget {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}

type fakeHost struct {
	loads    atomic.Int32
	clears   atomic.Int32
	loadGate chan struct{}
	loadErr  error
	factory  Factory
}

func (h *fakeHost) LoadScript(ctx context.Context, src string) error {
	h.loads.Add(1)
	if h.loadGate != nil {
		<-h.loadGate
	}
	return h.loadErr
}

func (h *fakeHost) Namespace(ctx context.Context) (Factory, error) {
	if h.factory == nil {
		return nil, ErrNoNamespace
	}
	return h.factory, nil
}

func (h *fakeHost) ClearElement(ctx context.Context, id string) error {
	h.clears.Add(1)
	return nil
}

type fakeChecker struct {
	mu       sync.Mutex
	eligible map[common.Address]bool
	err      error
	calls    int
}

func (c *fakeChecker) IsEligibleForZeroFee(ctx context.Context, user common.Address) (staking.EligibilityResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return staking.EligibilityResult{}, c.err
	}
	if c.eligible[user] {
		return staking.EligibilityResult{Eligible: true, TotalStakedZil: decimal.NewFromInt(25000)}, nil
	}
	return staking.EligibilityResult{TotalStakedZil: decimal.NewFromInt(10)}, nil
}

func (c *fakeChecker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
