package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AlexNa-Holdings/stakezil/wallet"
	"github.com/rs/zerolog/log"
)

type announceParams struct {
	Info wallet.ProviderInfo `json:"info"`
	providerRef
}

// pageEnv is the page window as seen by the wallet detector.
type pageEnv struct {
	s *Session
}

func (e *pageEnv) RequestProviders(fn func(wallet.Announcement)) func() {
	stop := e.s.addAnnounceListener(func(raw json.RawMessage) {
		var a announceParams
		if err := json.Unmarshal(raw, &a); err != nil {
			log.Debug().Err(err).Msg("bad announcement")
			return
		}
		fn(wallet.Announcement{Info: a.Info, Provider: e.s.wrapProvider(a.providerRef)})
	})
	e.s.notify("eip6963_requestProvider", nil)
	return stop
}

func (e *pageEnv) Lookup(ctx context.Context, path string) (any, error) {
	raw, err := e.s.call(ctx, "window_probe", map[string]any{"path": path})
	if err != nil {
		return nil, err
	}

	var ref *providerRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("window_probe %s: %w", path, err)
	}
	if ref == nil {
		return nil, nil
	}
	return e.s.wrapProvider(*ref), nil
}

func handleEIP6963Method(s *Session, m *RPCMessage) error {
	method := strings.TrimPrefix(m.Method, "eip6963_")

	switch method {
	case "announceProvider":
		s.announcements(m.Params)
		return nil
	}
	return &RPCError{Code: -32601, Message: "Method not found"}
}
