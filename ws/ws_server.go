package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/AlexNa-Holdings/stakezil/bus"
	"github.com/AlexNa-Holdings/stakezil/metrics"
	"github.com/AlexNa-Holdings/stakezil/rewards"
	"github.com/AlexNa-Holdings/stakezil/staking"
	"github.com/AlexNa-Holdings/stakezil/widget"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type StakeOracle interface {
	IsEligibleForZeroFee(ctx context.Context, user common.Address) (staking.EligibilityResult, error)
	GetStakedZilForAddress(ctx context.Context, user common.Address) (staking.StakeReport, error)
}

// Server accepts dashboard pages on /ws and serves the diagnostics routes.
type Server struct {
	oracle StakeOracle
	store  rewards.Store
	fees   widget.FeeSettings
	router chi.Router

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewServer(oracle StakeOracle, store rewards.Store, fees widget.FeeSettings) *Server {
	bus.Init()

	s := &Server{
		oracle:   oracle,
		store:    store,
		fees:     fees,
		sessions: make(map[string]*Session),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				log.Debug().Msgf("CheckOrigin: %s", r.Header.Get("Origin"))
				return true
			},
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/heartbeat"))

	r.Get("/ws", s.handleWS)
	r.Get("/stake/{address}", s.handleStake)
	r.Get("/rewards/{address}", s.handleGetRewards)
	r.Put("/rewards/{address}", s.handlePutRewards)
	r.Get("/debug/wallets", s.handleDebugWallets)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Hour,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Msgf("page bridge listening on %s", addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	s.closeAll()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	session := newSession(conn, r.Header.Get("User-Agent"))
	session.view = newView(session, s)

	s.add(session)
	defer s.remove(session)

	log.Info().Str("session", session.ID).Str("agent", session.Agent).Msg("page connected")

	go session.view.run()
	session.serve()

	session.close()
	session.view.close()
	log.Info().Str("session", session.ID).Msg("page disconnected")
}

func (s *Server) add(session *Session) {
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	metrics.PageSessions.Inc()
}

func (s *Server) remove(session *Session) {
	s.mu.Lock()
	delete(s.sessions, session.ID)
	s.mu.Unlock()
	metrics.PageSessions.Dec()
}

func (s *Server) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Session, 0, len(s.sessions))
	for _, ss := range s.sessions {
		list = append(list, ss)
	}
	return list
}

func (s *Server) closeAll() {
	for _, ss := range s.Sessions() {
		ss.conn.Close()
	}
}
