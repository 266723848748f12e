package wallet

import (
	"context"
	"encoding/json"
)

// Provider is the EIP-1193 request capability of a wallet.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// EventSource is implemented by providers that emit accountsChanged,
// connect and disconnect. On returns a function removing the listener.
type EventSource interface {
	On(event string, fn func(data any)) (off func())
}

// LegacySender covers pre-EIP-1193 send/sendAsync providers.
type LegacySender interface {
	Send(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

// LegacyAccount exposes the legacy selectedAddress field.
type LegacyAccount interface {
	SelectedAddress() string
}

// MetaMaskMarker is the isMetaMask flag. Its presence is what counts, not its value.
type MetaMaskMarker interface {
	IsMetaMask() bool
}

// ConnectedMarker is the isConnected probe.
type ConnectedMarker interface {
	IsConnected() bool
}

type Capability int

const (
	CapRequest Capability = iota
	CapSend
	CapEvents
	CapMetaMask
	CapConnected
	CapSelectedAddress
)

// CapabilityReporter is implemented by handles whose method set is wider than
// the object behind them, e.g. proxies of page objects. Without it, the
// method set alone decides.
type CapabilityReporter interface {
	Supports(c Capability) bool
}

func supports(p any, c Capability) bool {
	if r, ok := p.(CapabilityReporter); ok {
		return r.Supports(c)
	}
	return true
}

func AsProvider(p any) (Provider, bool) {
	v, ok := p.(Provider)
	return v, ok && supports(p, CapRequest)
}

func AsEventSource(p any) (EventSource, bool) {
	v, ok := p.(EventSource)
	return v, ok && supports(p, CapEvents)
}

func AsLegacySender(p any) (LegacySender, bool) {
	v, ok := p.(LegacySender)
	return v, ok && supports(p, CapSend)
}

func AsLegacyAccount(p any) (LegacyAccount, bool) {
	v, ok := p.(LegacyAccount)
	return v, ok && supports(p, CapSelectedAddress)
}

func hasMetaMaskFlag(p any) bool {
	_, ok := p.(MetaMaskMarker)
	return ok && supports(p, CapMetaMask)
}

func hasConnectedProbe(p any) bool {
	_, ok := p.(ConnectedMarker)
	return ok && supports(p, CapConnected)
}

const (
	EventAccountsChanged = "accountsChanged"
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
)

var ProviderEvents = []string{EventAccountsChanged, EventConnect, EventDisconnect}

// IsEVMProvider reports whether p exposes any EVM wallet capability.
func IsEVMProvider(p any) bool {
	if p == nil {
		return false
	}
	return looksLikeProvider(p) || hasConnectedProbe(p)
}

// looksLikeProvider is the stricter legacy-binding candidate test.
func looksLikeProvider(p any) bool {
	if p == nil {
		return false
	}
	if _, ok := AsProvider(p); ok {
		return true
	}
	if _, ok := AsLegacySender(p); ok {
		return true
	}
	return hasMetaMaskFlag(p)
}
