// Package httpserver serves the book over HTTP and websockets.
package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"matchcore/engine"
	"matchcore/infra/fanout"
	"matchcore/infra/kafka"
	"matchcore/infra/queue"
	"matchcore/service"
)

const writeWait = 5 * time.Second

type Server struct {
	svc      *service.OrderService
	bookHub  *fanout.Hub[engine.TopSnapshot]
	tradeHub *fanout.Hub[engine.Trade]
	upgrader websocket.Upgrader
	token    string
	log      *zap.Logger
}

type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" or ?token=<token>.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

func New(svc *service.OrderService, bookHub *fanout.Hub[engine.TopSnapshot], tradeHub *fanout.Hub[engine.Trade], opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		bookHub:  bookHub,
		tradeHub: tradeHub,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type statusResponse struct {
	Status    string `json:"status"`
	Processed uint64 `json:"processed"`
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.withAuth)
	api.HandleFunc("/book", s.handleBook).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.handlePlace).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id:[0-9]+}", s.handleCancel).Methods(http.MethodDelete)
	api.HandleFunc("/orders/{id:[0-9]+}", s.handleModify).Methods(http.MethodPatch)
	api.HandleFunc("/ws/book", s.handleBookStream).Methods(http.MethodGet)
	api.HandleFunc("/ws/trades", s.handleTradeStream).Methods(http.MethodGet)
	return r
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token != s.token {
			writeError(w, http.StatusUnauthorized, errors.New("missing or invalid token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: "ok", Processed: s.svc.Processed()}
	code := http.StatusOK
	if !s.svc.Ready() {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleBook(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.TopOfBook())
}

// handlePlace accepts the feed's JSON message shape for new, market,
// cancel and modify commands.
func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var msg kafka.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
		return
	}
	if msg.Type == "" {
		msg.Type = "new"
	}
	ev, err := msg.Event()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.accept(w, s.svc.Push(r.Context(), ev))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	s.accept(w, s.svc.CancelOrder(r.Context(), id))
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	var body struct {
		Qty *uint64 `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Qty == nil {
		writeError(w, http.StatusBadRequest, errors.New(`body must be {"qty": n}`))
		return
	}
	s.accept(w, s.svc.ModifyOrder(r.Context(), id, *body.Qty))
}

func (s *Server) accept(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, statusResponse{Status: "accepted", Processed: s.svc.Processed()})
	case errors.Is(err, service.ErrInvalidOrder):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.log.Error("http command failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleBookStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.bookHub.Subscribe(32)
	defer s.bookHub.Unsubscribe(sub)

	if err := writeMessage(conn, "book", s.svc.TopOfBook()); err != nil {
		return
	}
	gone := drain(conn)
	for {
		select {
		case <-gone:
			return
		case snap, ok := <-sub.C():
			if !ok {
				return
			}
			if err := writeMessage(conn, "book", snap); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.tradeHub.Subscribe(128)
	defer s.tradeHub.Unsubscribe(sub)

	if err := writeMessage(conn, "subscribed", map[string]string{"symbol": s.svc.TopOfBook().Symbol}); err != nil {
		return
	}
	gone := drain(conn)
	for {
		select {
		case <-gone:
			return
		case t, ok := <-sub.C():
			if !ok {
				return
			}
			if err := writeMessage(conn, "trade", t); err != nil {
				return
			}
		}
	}
}

// drain reads and discards client frames so close and ping frames are
// processed. The returned channel is closed once the client goes away.
func drain(conn *websocket.Conn) <-chan struct{} {
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	return gone
}

func writeMessage(conn *websocket.Conn, typ string, data any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(outboundMessage{Type: typ, Data: data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
