package ws

import (
	"encoding/json"
	"math/big"
	"net/http"
	"sort"
	"time"

	"github.com/AlexNa-Holdings/stakezil/cmn"
	"github.com/AlexNa-Holdings/stakezil/rewards"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func addressParam(r *http.Request) (common.Address, bool) {
	raw := chi.URLParam(r, "address")
	a := cmn.ZilToEvmAddress(raw)
	if a == nil {
		return common.Address{}, false
	}
	return *a, true
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	report, err := s.oracle.GetStakedZilForAddress(r.Context(), addr)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetRewards(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	rec, err := s.store.Get(r.Context(), addr.Hex())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no rewards tracked")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePutRewards(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	var body struct {
		TotalRewards string `json:"totalRewards"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	total, ok := new(big.Int).SetString(body.TotalRewards, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "totalRewards must be a base-10 integer")
		return
	}

	rec, err := rewards.Track(r.Context(), s.store, addr.Hex(), total, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type walletInfo struct {
	Name string `json:"name"`
	RDNS string `json:"rdns,omitempty"`
	UUID string `json:"uuid"`
	Icon string `json:"icon,omitempty"`
}

type sessionInfo struct {
	Session    string       `json:"session"`
	Agent      string       `json:"agent"`
	Wallets    []walletInfo `json:"wallets"`
	Active     *walletInfo  `json:"active"`
	Address    string       `json:"address,omitempty"`
	Registered string       `json:"registered,omitempty"`
	Widget     string       `json:"widget"`
}

func (s *Server) handleDebugWallets(w http.ResponseWriter, r *http.Request) {
	list := []sessionInfo{}

	for _, ss := range s.Sessions() {
		v := ss.view
		info := sessionInfo{
			Session:    ss.ID,
			Agent:      ss.Agent,
			Wallets:    []walletInfo{},
			Registered: v.bridge.LastRegistered(),
			Widget:     v.fee.State().String(),
		}
		for _, dw := range v.bridge.Wallets() {
			info.Wallets = append(info.Wallets, walletInfo{Name: dw.Name, RDNS: dw.RDNS, UUID: dw.UUID, Icon: dw.Icon})
		}
		if addr := v.address(); addr != nil {
			info.Address = addr.Hex()
		}
		if a := v.bridge.Active(); a != nil {
			info.Active = &walletInfo{Name: a.Name, RDNS: a.RDNS, UUID: a.UUID, Icon: a.Icon}
		}
		list = append(list, info)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Session < list[j].Session })
	writeJSON(w, http.StatusOK, list)
}
