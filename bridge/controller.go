package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/AlexNa-Holdings/stakezil/metrics"
	"github.com/AlexNa-Holdings/stakezil/wallet"
	"github.com/AlexNa-Holdings/stakezil/widget"
	"github.com/rs/zerolog/log"
)

type Detector interface {
	DetectEVMWallets(ctx context.Context) []wallet.DetectedWallet
}

type Config struct {
	Detector           Detector
	RefreshDebounce    time.Duration
	MinRefreshInterval time.Duration
	// OnActiveChange is called whenever the active wallet identity changes.
	OnActiveChange func(w *wallet.DetectedWallet)
}

// Controller keeps the bridge widget's external EVM wallet in line with the
// wallet the user is actually connected with.
type Controller struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	active wallet.ActiveState

	mu             sync.Mutex
	wallets        []wallet.DetectedWallet
	detecting      bool
	widget         widget.Widget
	lastRegistered string
	registering    string // uuid of the registration in flight
	offs           []func()
	timer          *time.Timer
	timerGen       int
	lastRefresh    time.Time
	closed         bool
}

func NewController(cfg Config) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{cfg: cfg, ctx: ctx, cancel: cancel}
}

func (c *Controller) Wallets() []wallet.DetectedWallet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]wallet.DetectedWallet(nil), c.wallets...)
}

func (c *Controller) Active() *wallet.DetectedWallet {
	return c.active.Get()
}

func (c *Controller) LastRegistered() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRegistered
}

// DetectWallets runs discovery, resolves the active wallet and starts
// listening to provider events. A call while one is running returns the
// current list.
func (c *Controller) DetectWallets(ctx context.Context) []wallet.DetectedWallet {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.detecting {
		list := append([]wallet.DetectedWallet(nil), c.wallets...)
		c.mu.Unlock()
		return list
	}
	c.detecting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.detecting = false
		c.mu.Unlock()
	}()

	wallets := c.cfg.Detector.DetectEVMWallets(ctx)
	active := wallet.FindActiveWallet(ctx, wallets)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.wallets = wallets
	c.mu.Unlock()

	c.subscribe(wallets)

	name := "none"
	if active != nil {
		name = active.Name
	}
	log.Debug().Msgf("Detected %d EVM wallets, active: %s", len(wallets), name)

	c.setActive(ctx, active)
	return append([]wallet.DetectedWallet(nil), wallets...)
}

// SetupWidgetEvents binds the widget's needConnect signal to a forced
// registration and registers right away in case it already fired.
func (c *Controller) SetupWidgetEvents(ctx context.Context, w widget.Widget, force bool) {
	c.mu.Lock()
	c.widget = w
	c.mu.Unlock()

	w.On(widget.EventNeedConnect, func(args ...any) {
		log.Debug().Msg("needConnect event received")
		c.RegisterWalletWithWidget(c.ctx, w, true)
	})

	c.RegisterWalletWithWidget(ctx, w, force)
}

// RegisterWalletWithWidget hands the active wallet to the widget unless it is
// already the registered one. Reports whether a registration succeeded.
func (c *Controller) RegisterWalletWithWidget(ctx context.Context, w widget.Widget, force bool) bool {
	active := c.active.Get()
	if active == nil {
		return false
	}

	c.mu.Lock()
	if !force && (c.lastRegistered == active.UUID || c.registering == active.UUID) {
		c.mu.Unlock()
		return false
	}
	c.registering = active.UUID
	c.mu.Unlock()

	log.Debug().Bool("force", force).Msgf("Registering active wallet with widget: %s", active.Name)

	err := w.SetExternalEVMWallet(ctx, widget.ExternalWallet{
		Provider: active.Provider,
		Name:     active.Name,
		ImageSrc: active.Icon,
	})

	c.mu.Lock()
	if c.registering == active.UUID {
		c.registering = ""
	}
	if err == nil {
		c.lastRegistered = active.UUID
	}
	c.mu.Unlock()

	if err != nil {
		metrics.WalletRegistrations.WithLabelValues("error").Inc()
		log.Warn().Err(err).Msgf("Failed to register %s", active.Name)
		return false
	}
	metrics.WalletRegistrations.WithLabelValues("ok").Inc()
	return true
}

// RefreshActiveWallet re-resolves the active wallet among the detected ones.
func (c *Controller) RefreshActiveWallet(ctx context.Context) {
	c.mu.Lock()
	wallets := c.wallets
	c.lastRefresh = time.Now()
	c.mu.Unlock()

	if len(wallets) == 0 {
		return
	}
	c.setActive(ctx, wallet.FindActiveWallet(ctx, wallets))
}

func (c *Controller) setActive(ctx context.Context, active *wallet.DetectedWallet) {
	if !c.active.Set(active) {
		return
	}

	if c.cfg.OnActiveChange != nil {
		c.cfg.OnActiveChange(active)
	}

	c.mu.Lock()
	w := c.widget
	c.mu.Unlock()
	if w != nil {
		c.RegisterWalletWithWidget(ctx, w, false)
	}
}

func (c *Controller) subscribe(wallets []wallet.DetectedWallet) {
	var offs []func()
	for _, dw := range wallets {
		src, ok := wallet.AsEventSource(dw.Provider)
		if !ok {
			continue
		}
		for _, ev := range wallet.ProviderEvents {
			offs = append(offs, src.On(ev, func(data any) {
				log.Trace().Str("wallet", dw.Name).Msgf("provider event: %s", ev)
				c.scheduleRefresh()
			}))
		}
	}

	c.mu.Lock()
	old := c.offs
	c.offs = offs
	c.mu.Unlock()

	for _, off := range old {
		off()
	}
}

// scheduleRefresh restarts the debounce timer. When it fires, a refresh that
// would come sooner than MinRefreshInterval after the last one is pushed back.
func (c *Controller) scheduleRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.armLocked(c.cfg.RefreshDebounce)
}

func (c *Controller) armLocked(d time.Duration) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(d, func() { c.onTimer(gen) })
}

// onTimer ignores a timer that was replaced after it had already fired.
func (c *Controller) onTimer(gen int) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	if wait := c.cfg.MinRefreshInterval - time.Since(c.lastRefresh); wait > 0 {
		c.armLocked(wait)
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	log.Debug().Msg("Accounts changed, refreshing active wallet")
	c.RefreshActiveWallet(c.ctx)
}

// Close stops the refresh timer and removes every provider listener.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	offs := c.offs
	c.offs = nil
	c.widget = nil
	c.mu.Unlock()

	c.cancel()
	for _, off := range offs {
		off()
	}
}
