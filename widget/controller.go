package widget

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AlexNa-Holdings/stakezil/cmn"
	"github.com/AlexNa-Holdings/stakezil/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type State int

const (
	Unloaded State = iota
	ScriptLoading
	Initializing
	Ready
	Destroyed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case ScriptLoading:
		return "script-loading"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const destroyTimeout = 5 * time.Second

type Config struct {
	Host      Host
	Loader    *ScriptLoader // optional, defaults to a loader over Host
	Checker   EligibilityChecker
	Fees      FeeSettings
	ScriptSrc string
	Element   string
	Referral  int

	// OnFeeChange receives the effective percent after every fee computation.
	OnFeeChange func(percent decimal.Decimal)
	// OnReady is called with every widget that reaches Ready.
	OnReady func(w Widget)
}

// mount is one Mount call. cancelled is set by Teardown; a mount that finds
// it set after a suspension point drops what it has.
type mount struct {
	cancelled atomic.Bool
}

// FeeController owns the lifecycle of the single widget of a page and keeps
// its affiliate fee in line with the connected wallet.
type FeeController struct {
	cfg    Config
	loader *ScriptLoader

	mu     sync.Mutex
	state  State
	widget Widget
	cur    *mount
	addr   *common.Address
}

func NewFeeController(cfg Config) *FeeController {
	l := cfg.Loader
	if l == nil {
		l = NewScriptLoader(cfg.Host)
	}
	return &FeeController{cfg: cfg, loader: l}
}

func (c *FeeController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Widget returns the live widget, nil unless Ready.
func (c *FeeController) Widget() Widget {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Ready {
		return nil
	}
	return c.widget
}

// Mount tears down any previous widget and brings up a fresh one with the
// fee computed for addr. Script or namespace failures are terminal for this
// mount and leave the controller Unloaded. A Teardown during Mount makes it
// return nil without touching state.
func (c *FeeController) Mount(ctx context.Context, addr *common.Address) error {
	c.Teardown(ctx)

	m := &mount{}
	c.mu.Lock()
	c.cur = m
	c.addr = addr
	c.state = ScriptLoading
	c.mu.Unlock()

	if err := c.cfg.Host.ClearElement(ctx, c.cfg.Element); err != nil {
		log.Warn().Err(err).Str("element", c.cfg.Element).Msg("widget: clear element failed")
	}

	if err := c.loader.Load(ctx, c.cfg.ScriptSrc); err != nil {
		c.halt(m)
		return fmt.Errorf("load widget script: %w", err)
	}
	if m.cancelled.Load() {
		return nil
	}

	factory, err := c.cfg.Host.Namespace(ctx)
	if err != nil {
		c.halt(m)
		return fmt.Errorf("widget namespace: %w", err)
	}
	if m.cancelled.Load() {
		return nil
	}

	if !c.transition(m, ScriptLoading, Initializing) {
		return nil
	}

	params := NewParams(c.cfg.Element, c.cfg.Fees, c.cfg.Referral)
	log.Debug().Interface("params", params).Msg("widget: init")

	w, err := factory.NewWidget(ctx, params)
	if err != nil {
		c.halt(m)
		return fmt.Errorf("create widget: %w", err)
	}
	if m.cancelled.Load() {
		destroy(w)
		return nil
	}

	c.mu.Lock()
	if c.cur != m {
		c.mu.Unlock()
		destroy(w)
		return nil
	}
	c.widget = w
	c.state = Ready
	first := c.addr
	c.mu.Unlock()

	w.On(EventOrder, func(args ...any) { log.Debug().Msg("widget: order") })
	w.On(EventBridge, func(args ...any) { log.Debug().Msg("widget: bridge") })

	c.applyFee(ctx, m, w, first, false)

	if c.cfg.OnReady != nil && !m.cancelled.Load() {
		c.cfg.OnReady(w)
	}

	log.Debug().Msg("widget: ready")
	return nil
}

// Address returns the last recorded application wallet.
func (c *FeeController) Address() *common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// SetAddress records the resolved application wallet. Once Ready, a change
// re-prices the widget; a disconnect resets it to the default fee without
// an eligibility check.
func (c *FeeController) SetAddress(ctx context.Context, addr *common.Address) {
	if apply := c.RecordAddress(addr); apply != nil {
		apply(ctx)
	}
}

// RecordAddress is the synchronous half of SetAddress. It records addr right
// away and returns the fee update the change calls for, or nil when there is
// none. Callers that run updates elsewhere must run them in record order.
func (c *FeeController) RecordAddress(addr *common.Address) func(ctx context.Context) {
	c.mu.Lock()
	prev := c.addr
	if sameAddress(prev, addr) {
		c.mu.Unlock()
		return nil
	}
	c.addr = addr
	if c.state != Ready {
		c.mu.Unlock()
		return nil
	}
	w, m := c.widget, c.cur
	c.mu.Unlock()

	log.Debug().Str("from", addrString(prev)).Str("to", addrString(addr)).Msg("widget: wallet changed")

	reset := prev != nil && addr == nil
	return func(ctx context.Context) {
		c.applyFee(ctx, m, w, addr, reset)
	}
}

// Teardown destroys the widget (best effort), clears the host element and
// cancels any Mount in flight.
func (c *FeeController) Teardown(ctx context.Context) {
	c.mu.Lock()
	m, w := c.cur, c.widget
	active := c.state != Unloaded && c.state != Destroyed
	c.cur = nil
	c.widget = nil
	if active || w != nil {
		c.state = Destroyed
	}
	c.mu.Unlock()

	if m != nil {
		m.cancelled.Store(true)
	}
	if w == nil && !active {
		return
	}
	if w != nil {
		destroy(w)
	}
	if err := c.cfg.Host.ClearElement(ctx, c.cfg.Element); err != nil {
		log.Debug().Err(err).Msg("widget: clear element on teardown failed")
	}
}

func (c *FeeController) transition(m *mount, from, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != m || c.state != from {
		return false
	}
	c.state = to
	return true
}

func (c *FeeController) halt(m *mount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == m {
		c.cur = nil
		c.state = Unloaded
	}
}

func (c *FeeController) applyFee(ctx context.Context, m *mount, w Widget, addr *common.Address, reset bool) {
	def := c.cfg.Fees.DefaultPercent

	if addr == nil {
		if reset {
			c.push(ctx, m, w, def)
			log.Debug().Str("percent", def.String()).Msg("widget: reset to default fee")
		} else {
			log.Debug().Str("percent", def.String()).Msg("widget: no wallet connected, default fee")
		}
		c.notify(m, def)
		return
	}

	percent := def
	res, err := c.cfg.Checker.IsEligibleForZeroFee(ctx, *addr)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("user", addr.Hex()).Msg("widget: eligibility check failed, default fee")
	case res.Eligible:
		percent = decimal.Zero
		log.Debug().Msgf("widget: eligible (≈ %s ZIL), fee 0%%", cmn.FormatZil(res.TotalStakedZil))
	default:
		log.Debug().Msgf("widget: not eligible (≈ %s ZIL), fee %s%%", cmn.FormatZil(res.TotalStakedZil), def)
	}

	if m.cancelled.Load() {
		return
	}
	c.push(ctx, m, w, percent)
	c.notify(m, percent)
}

func (c *FeeController) push(ctx context.Context, m *mount, w Widget, percent decimal.Decimal) {
	if m.cancelled.Load() {
		return
	}
	if err := w.SetAffiliateFee(ctx, c.cfg.Fees.fee(percent)); err != nil {
		log.Warn().Err(err).Msg("widget: setAffiliateFee failed")
		return
	}
	metrics.FeeUpdates.WithLabelValues(percent.String()).Inc()
}

func (c *FeeController) notify(m *mount, percent decimal.Decimal) {
	if c.cfg.OnFeeChange != nil && !m.cancelled.Load() {
		c.cfg.OnFeeChange(percent)
	}
}

func destroy(w Widget) {
	d, ok := w.(Destroyer)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), destroyTimeout)
	defer cancel()
	if err := d.Destroy(ctx); err != nil {
		log.Warn().Err(err).Msg("widget: destroy failed")
	}
}

func sameAddress(a, b *common.Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func addrString(a *common.Address) string {
	if a == nil {
		return "none"
	}
	return a.Hex()
}
