package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

type fakeProvider struct {
	accounts []string
	err      error
	calls    int
}

func (p *fakeProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if method != "eth_accounts" {
		return nil, errors.New("unsupported")
	}
	return json.Marshal(p.accounts)
}

type legacyProvider struct {
	selected string
	accounts []string
	sends    int
}

func (p *legacyProvider) Send(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	p.sends++
	if p.accounts == nil {
		return nil, errors.New("not implemented")
	}
	return json.Marshal(p.accounts)
}

func (p *legacyProvider) SelectedAddress() string { return p.selected }

type metaMaskOnly struct{}

func (metaMaskOnly) IsMetaMask() bool { return false }

type connectedOnly struct{}

func (connectedOnly) IsConnected() bool { return true }

// proxyProvider has every method but only the capabilities in caps.
type proxyProvider struct {
	caps     map[Capability]bool
	selected string
	on       []string
}

func (p *proxyProvider) Supports(c Capability) bool { return p.caps[c] }

func (p *proxyProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return json.Marshal([]string{"0xrequest"})
}

func (p *proxyProvider) Send(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	return json.Marshal([]string{})
}

func (p *proxyProvider) On(event string, fn func(data any)) func() {
	p.on = append(p.on, event)
	return func() {}
}

func (p *proxyProvider) SelectedAddress() string { return p.selected }
func (p *proxyProvider) IsMetaMask() bool        { return true }
func (p *proxyProvider) IsConnected() bool       { return true }

type fakeEnv struct {
	MapGlobals
	announcements []Announcement
	lookupErr     map[string]error
	panicOn       string

	mu       sync.Mutex
	requests int
	stopped  int
}

func (e *fakeEnv) RequestProviders(fn func(Announcement)) func() {
	e.mu.Lock()
	e.requests++
	e.mu.Unlock()

	go func() {
		for _, a := range e.announcements {
			fn(a)
		}
	}()
	return func() {
		e.mu.Lock()
		e.stopped++
		e.mu.Unlock()
	}
}

func (e *fakeEnv) Lookup(ctx context.Context, path string) (any, error) {
	if path == e.panicOn {
		panic("getter threw")
	}
	if err := e.lookupErr[path]; err != nil {
		return nil, err
	}
	return e.MapGlobals.Lookup(ctx, path)
}
