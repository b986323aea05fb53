// Package server exposes sessions over WebSocket together with health,
// schema and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/ema-relay/core"
	"github.com/koscakluka/ema-relay/core/credentials"
	"github.com/koscakluka/ema-relay/core/events"
)

const (
	serviceName = "ema-relay"

	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultReadLimit       = 1 << 20
)

// SessionFactory builds the orchestrator for one connection.
type SessionFactory func(sessionID string) *orchestration.Orchestrator

type Server struct {
	router     chi.Router
	upgrader   websocket.Upgrader
	newSession SessionFactory

	fallback        credentials.Set
	metrics         http.Handler
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	readLimit       int64

	sessionsCtx    context.Context
	cancelSessions context.CancelFunc
	sessions       sync.WaitGroup
}

type Option func(*Server)

// WithFallbackCredentials reports which fallback keys exist on /healthz.
func WithFallbackCredentials(fallback credentials.Set) Option {
	return func(s *Server) { s.fallback = fallback }
}

func WithMetricsHandler(handler http.Handler) Option {
	return func(s *Server) { s.metrics = handler }
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.writeTimeout = timeout
		}
	}
}

func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.shutdownTimeout = timeout
		}
	}
}

// WithReadLimit caps the size of a single inbound audio frame.
func WithReadLimit(limit int64) Option {
	return func(s *Server) {
		if limit > 0 {
			s.readLimit = limit
		}
	}
}

func New(newSession SessionFactory, opts ...Option) *Server {
	sessionsCtx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		newSession:      newSession,
		writeTimeout:    defaultWriteTimeout,
		shutdownTimeout: defaultShutdownTimeout,
		readLimit:       defaultReadLimit,
		sessionsCtx:     sessionsCtx,
		cancelSessions:  cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The relay is called from browsers served by other origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(srv)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Get("/healthz", srv.handleHealth)
	r.Get("/ws", srv.handleWebSocket)
	r.Get("/ws/schema", srv.handleSchema)
	if srv.metrics != nil {
		r.Method(http.MethodGet, "/metrics", srv.metrics)
	}

	srv.router = r
	return srv
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then stops
// accepting connections, ends every session and waits for them.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "addr", addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		s.cancelSessions()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close ends every running session and waits for them to finish.
func (s *Server) Close() {
	s.cancelSessions()
	s.sessions.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"service":     serviceName,
		"credentials": s.fallback.Present(),
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, events.Schemas())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.sessionsCtx.Err() != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "server is shutting down"})
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.sessions.Add(1)
	defer s.sessions.Done()

	sessionID := uuid.NewString()
	logger := slog.With("session_id", sessionID, "request_id", middleware.GetReqID(r.Context()))
	logger.Info("client connected", "remote_addr", r.RemoteAddr)

	conn.SetReadLimit(s.readLimit)
	source := newAudioSource(conn)
	sink := newEventSink(conn, s.writeTimeout)
	defer sink.Close()

	orchestrator := s.newSession(sessionID)
	if err := orchestrator.Orchestrate(s.sessionsCtx, credentials.FromQuery(r.URL.Query()), source, sink); err != nil {
		logger.Warn("session ended with error", "error", err)
		return
	}
	logger.Info("session ended")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
