package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/AlexNa-Holdings/stakezil/bus"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrSessionClosed = errors.New("page session closed")

// Session is one connected dashboard page. Calls into the page go through the
// bus topic of the session and are matched to the page's responses by id.
type Session struct {
	ID    string
	Agent string

	conn    *websocket.Conn
	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	ch     chan *bus.Message

	nextId    atomic.Int64
	pendingMu sync.Mutex
	pending   map[int64]*bus.Message

	listeners *listenerManager

	announceMu sync.Mutex
	announceId int
	announce   map[int]func(raw json.RawMessage)

	view *view
}

func newSession(conn *websocket.Conn, agent string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        uuid.NewString(),
		Agent:     agent,
		conn:      conn,
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[int64]*bus.Message),
		listeners: newListenerManager(),
		announce:  make(map[int]func(raw json.RawMessage)),
	}
	s.ch = bus.Subscribe(bus.PageTopic(s.ID))
	go s.loop()
	return s
}

func (s *Session) Context() context.Context {
	return s.ctx
}

// call sends a request to the page and waits for the result.
func (s *Session) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if s.ctx.Err() != nil {
		return nil, ErrSessionClosed
	}

	msg := bus.Fetch(ctx, bus.PageTopic(s.ID), "call", &bus.B_PageCall{
		Method: method,
		Params: params,
	})
	if msg.Error != nil {
		return nil, fmt.Errorf("%s: %w", method, msg.Error)
	}

	res, ok := msg.Data.(bus.B_PageCall_Response)
	if !ok {
		return nil, fmt.Errorf("%s: %w", method, bus.ErrInvalidMessageData)
	}
	return json.RawMessage(res), nil
}

func (s *Session) notify(method string, params any) {
	if s.ctx.Err() != nil {
		return
	}
	bus.Send(bus.PageTopic(s.ID), "notify", &bus.B_PageNotify{
		Method: method,
		Params: params,
	})
}

func (s *Session) loop() {
	for msg := range s.ch {
		switch msg.Type {
		case "call":
			req, ok := msg.Data.(*bus.B_PageCall)
			if !ok {
				msg.Respond(nil, bus.ErrInvalidMessageData)
				continue
			}

			id := s.nextId.Add(1)
			s.pendingMu.Lock()
			s.pending[id] = msg
			s.pendingMu.Unlock()

			err := s.send(&RPCRequest{
				JSONRPC: "2.0",
				ID:      id,
				Method:  req.Method,
				Params:  req.Params,
			})
			if err != nil {
				if m := s.takePending(id); m != nil {
					m.Respond(nil, err)
				}
			}
		case "notify":
			n, ok := msg.Data.(*bus.B_PageNotify)
			if !ok {
				continue
			}
			if err := s.send(&RPCNotification{JSONRPC: "2.0", Method: n.Method, Params: n.Params}); err != nil {
				log.Debug().Err(err).Msgf("notify %s dropped", n.Method)
			}
		}
	}
}

func (s *Session) takePending(id int64) *bus.Message {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	m, ok := s.pending[id]
	if !ok {
		return nil
	}
	delete(s.pending, id)
	return m
}

func (s *Session) send(data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON marshal error: %w", err)
	}

	log.Trace().Msgf("ws<- %s", string(b))

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

// serve reads page messages until the connection drops.
func (s *Session) serve() {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("session", s.ID).Msg("read loop ended")
			return
		}
		if msgType != websocket.TextMessage {
			log.Trace().Msgf("Received non-text message: %d", msgType)
			continue
		}

		log.Trace().Msgf("ws-> %s", string(data))

		var m RPCMessage
		if err := json.Unmarshal(data, &m); err != nil {
			log.Error().Err(err).Msg("JSON parse error")
			continue
		}

		if m.isResponse() {
			s.handleResponse(&m)
			continue
		}
		s.handleMethod(&m)
	}
}

func (s *Session) handleResponse(m *RPCMessage) {
	msg := s.takePending(*m.ID)
	if msg == nil {
		log.Warn().Int64("id", *m.ID).Msg("response to unknown request")
		return
	}
	if m.Error != nil {
		msg.Respond(nil, m.Error)
		return
	}
	res := m.Result
	if len(res) == 0 {
		res = json.RawMessage("null")
	}
	msg.Respond(bus.B_PageCall_Response(res), nil)
}

func (s *Session) handleMethod(m *RPCMessage) {
	var err error

	switch {
	case strings.HasPrefix(m.Method, "eip6963_"):
		err = handleEIP6963Method(s, m)
	case strings.HasPrefix(m.Method, "provider_"):
		err = handleProviderMethod(s, m)
	case strings.HasPrefix(m.Method, "widget_"):
		err = handleWidgetMethod(s, m)
	case strings.HasPrefix(m.Method, "app_"):
		err = handleAppMethod(s, m)
	default:
		err = &RPCError{Code: -32601, Message: "Method not found"}
	}

	if err != nil {
		log.Error().Err(err).Msgf("Error handling method: %s", m.Method)
	}

	if m.ID == nil {
		return
	}

	res := &RPCResponse{JSONRPC: "2.0", ID: *m.ID}
	if err != nil {
		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) {
			rpcErr = &RPCError{Code: -32602, Message: err.Error()}
		}
		res.Error = rpcErr
	}
	if err := s.send(res); err != nil {
		log.Error().Err(err).Msg("Write error")
	}
}

// close cancels everything the session started and fails calls still
// waiting on the page.
func (s *Session) close() {
	s.cancel()
	bus.Unsubscribe(s.ch)

	s.pendingMu.Lock()
	pending := s.pending
	s.pending = make(map[int64]*bus.Message)
	s.pendingMu.Unlock()

	for _, msg := range pending {
		msg.Respond(nil, ErrSessionClosed)
	}
}

func (s *Session) addAnnounceListener(fn func(raw json.RawMessage)) func() {
	s.announceMu.Lock()
	s.announceId++
	id := s.announceId
	s.announce[id] = fn
	s.announceMu.Unlock()

	return func() {
		s.announceMu.Lock()
		delete(s.announce, id)
		s.announceMu.Unlock()
	}
}

func (s *Session) announcements(raw json.RawMessage) {
	s.announceMu.Lock()
	fns := make([]func(json.RawMessage), 0, len(s.announce))
	for _, fn := range s.announce {
		fns = append(fns, fn)
	}
	s.announceMu.Unlock()

	for _, fn := range fns {
		fn(raw)
	}
}

// dispatch runs listeners off the read loop so they may call into the page.
func (s *Session) dispatch(object, event string, args ...any) {
	for _, l := range s.listeners.get(object, event) {
		go l.fn(args...)
	}
}
