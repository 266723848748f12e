package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AlexNa-Holdings/stakezil/wallet"
)

const legacySendTimeout = 10 * time.Second

// providerCaps is what the page found on a provider object.
type providerCaps struct {
	Request         bool   `json:"request"`
	Send            bool   `json:"send"`
	On              bool   `json:"on"`
	IsMetaMask      *bool  `json:"isMetaMask,omitempty"` // presence counts
	IsConnected     bool   `json:"isConnected"`
	SelectedAddress string `json:"selectedAddress,omitempty"`
}

type providerRef struct {
	ProviderId string       `json:"providerId"`
	Caps       providerCaps `json:"caps"`
}

// pageObject is implemented by every process side handle of a page object.
type pageObject interface {
	ProviderID() string
}

// remoteProvider is a provider object living in the page. It carries every
// wallet method; Supports tells which ones the object really has.
type remoteProvider struct {
	s    *Session
	id   string
	caps providerCaps
}

func (p *remoteProvider) ProviderID() string {
	return p.id
}

func (p *remoteProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	return p.s.call(ctx, "provider_request", map[string]any{
		"providerId": p.id,
		"method":     method,
		"params":     params,
	})
}

func (p *remoteProvider) On(event string, fn func(data any)) func() {
	id, first := p.s.listeners.add(p.id, event, func(args ...any) {
		var data any
		if len(args) > 0 {
			data = args[0]
		}
		fn(data)
	})
	if first {
		p.s.notify("provider_subscribe", map[string]any{"providerId": p.id, "event": event})
	}
	return func() { p.s.listeners.remove(p.id, event, id) }
}

func (p *remoteProvider) SelectedAddress() string {
	return p.caps.SelectedAddress
}

func (p *remoteProvider) Send(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, legacySendTimeout)
	defer cancel()
	if params == nil {
		params = []any{}
	}
	return p.s.call(ctx, "provider_send", map[string]any{
		"providerId": p.id,
		"method":     method,
		"params":     params,
	})
}

func (p *remoteProvider) IsMetaMask() bool {
	return p.caps.IsMetaMask != nil && *p.caps.IsMetaMask
}

func (p *remoteProvider) IsConnected() bool {
	return p.caps.IsConnected
}

// Supports reports the capabilities the page found on the object, so the
// wallet package sees exactly those and not the full method set.
func (p *remoteProvider) Supports(c wallet.Capability) bool {
	switch c {
	case wallet.CapRequest:
		return p.caps.Request
	case wallet.CapSend:
		return p.caps.Send
	case wallet.CapEvents:
		return p.caps.On
	case wallet.CapMetaMask:
		return p.caps.IsMetaMask != nil
	case wallet.CapConnected:
		return p.caps.IsConnected
	case wallet.CapSelectedAddress:
		return p.caps.SelectedAddress != ""
	}
	return false
}

func (s *Session) wrapProvider(ref providerRef) *remoteProvider {
	return &remoteProvider{s: s, id: ref.ProviderId, caps: ref.Caps}
}

var (
	_ wallet.Provider           = (*remoteProvider)(nil)
	_ wallet.EventSource        = (*remoteProvider)(nil)
	_ wallet.LegacySender       = (*remoteProvider)(nil)
	_ wallet.LegacyAccount      = (*remoteProvider)(nil)
	_ wallet.MetaMaskMarker     = (*remoteProvider)(nil)
	_ wallet.ConnectedMarker    = (*remoteProvider)(nil)
	_ wallet.CapabilityReporter = (*remoteProvider)(nil)
)

type providerEvent struct {
	ProviderId string `json:"providerId"`
	Event      string `json:"event"`
	Data       any    `json:"data"`
}

func handleProviderMethod(s *Session, m *RPCMessage) error {
	method := strings.TrimPrefix(m.Method, "provider_")

	switch method {
	case "event":
		var ev providerEvent
		if err := json.Unmarshal(m.Params, &ev); err != nil {
			return fmt.Errorf("bad provider_event: %w", err)
		}
		s.dispatch(ev.ProviderId, ev.Event, ev.Data)
		return nil
	}
	return &RPCError{Code: -32601, Message: "Method not found"}
}
