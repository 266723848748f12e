package ws

import (
	"encoding/json"
	"fmt"
	"strings"
)

func handleAppMethod(s *Session, m *RPCMessage) error {
	method := strings.TrimPrefix(m.Method, "app_")

	switch method {
	case "walletChanged":
		var p struct {
			Address string `json:"address"`
		}
		if len(m.Params) > 0 {
			if err := json.Unmarshal(m.Params, &p); err != nil {
				return fmt.Errorf("bad app_walletChanged: %w", err)
			}
		}
		if s.view != nil {
			s.view.setWallet(p.Address)
		}
		return nil
	case "redetect":
		if s.view != nil {
			go s.view.bridge.DetectWallets(s.ctx)
		}
		return nil
	}
	return &RPCError{Code: -32601, Message: "Method not found"}
}
