package ws

import (
	"context"
	"sync"
	"time"

	"github.com/AlexNa-Holdings/stakezil/bridge"
	"github.com/AlexNa-Holdings/stakezil/cmn"
	"github.com/AlexNa-Holdings/stakezil/wallet"
	"github.com/AlexNa-Holdings/stakezil/widget"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const teardownTimeout = 5 * time.Second

// view is the bridge tab of one page: wallet detection, the widget and its
// fee, and the wallet handed to the widget.
type view struct {
	s      *Session
	bridge *bridge.Controller
	fee    *widget.FeeController

	mu      sync.Mutex
	appAddr *common.Address

	// fee updates, applied in the order the wallet changes arrived
	qmu   sync.Mutex
	queue []func(ctx context.Context)
	wake  chan struct{}
}

func newView(s *Session, srv *Server) *view {
	v := &view{s: s, wake: make(chan struct{}, 1)}

	v.bridge = bridge.NewController(bridge.Config{
		Detector:           wallet.NewDetector(&pageEnv{s: s}, cmn.Config.DiscoveryWindow),
		RefreshDebounce:    cmn.Config.RefreshDebounce,
		MinRefreshInterval: cmn.Config.MinRefreshInterval,
		OnActiveChange: func(w *wallet.DetectedWallet) {
			name := ""
			if w != nil {
				name = w.Name
			}
			s.notify("app_activeWallet", map[string]any{"name": name})
		},
	})

	v.fee = widget.NewFeeController(widget.Config{
		Host:      &pageHost{s: s},
		Checker:   srv.oracle,
		Fees:      srv.fees,
		ScriptSrc: cmn.Config.WidgetScriptSrc,
		Element:   cmn.Config.WidgetElementId,
		Referral:  cmn.Config.ReferralCode,
		OnFeeChange: func(percent decimal.Decimal) {
			s.notify("app_feeChanged", map[string]any{"percent": percent.String()})
		},
		OnReady: func(w widget.Widget) {
			v.bridge.SetupWidgetEvents(s.ctx, w, false)
		},
	})

	return v
}

func (v *view) address() *common.Address {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.appAddr
}

func (v *view) run() {
	ctx := v.s.ctx

	go v.applyUpdates(ctx)

	v.bridge.DetectWallets(ctx)
	if ctx.Err() != nil {
		return
	}

	if err := v.fee.Mount(ctx, v.address()); err != nil {
		log.Error().Err(err).Str("session", v.s.ID).Msg("bridge widget not rendered")
		return
	}

	// wallet changes that raced the mount
	v.mu.Lock()
	v.record(v.appAddr)
	v.mu.Unlock()
}

// setWallet runs on the session read loop. The address is recorded before
// the next page message is read; only the fee update is deferred.
func (v *view) setWallet(base16 string) {
	addr := cmn.ZilToEvmAddress(base16)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.appAddr = addr
	v.record(addr)
}

// record must be called with v.mu held.
func (v *view) record(addr *common.Address) {
	apply := v.fee.RecordAddress(addr)
	if apply == nil {
		return
	}

	v.qmu.Lock()
	v.queue = append(v.queue, apply)
	v.qmu.Unlock()

	select {
	case v.wake <- struct{}{}:
	default:
	}
}

func (v *view) applyUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-v.wake:
		}

		for {
			v.qmu.Lock()
			if len(v.queue) == 0 {
				v.qmu.Unlock()
				break
			}
			apply := v.queue[0]
			v.queue = v.queue[1:]
			v.qmu.Unlock()

			apply(ctx)
		}
	}
}

func (v *view) close() {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	v.bridge.Close()
	v.fee.Teardown(ctx)
}
