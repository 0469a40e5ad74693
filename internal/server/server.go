// Package server exposes the HTTP control surface: health, token issuance,
// session lifecycle and a websocket audio stream per session.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/koscakluka/gisa/internal/livekit"
	"github.com/koscakluka/gisa/internal/sessions"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	mux      *http.ServeMux
	sessions *sessions.Registry[*Session]
	factory  Factory
	livekit  livekit.Credentials
	now      func() time.Time
}

type Option func(*Server)

// WithClock replaces time.Now for status reporting.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(factory Factory, creds livekit.Credentials, opts ...Option) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		sessions: sessions.NewRegistry[*Session](),
		factory:  factory,
		livekit:  creds,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("GET /health", healthHandler{sessions: s.sessions, now: s.now})
	s.mux.Handle("POST /api/token", tokenHandler{creds: s.livekit})
	s.mux.Handle("POST /api/session/start", startSessionHandler{sessions: s.sessions, factory: s.factory})
	s.mux.Handle("GET /api/session/{id}", sessionStatusHandler{sessions: s.sessions, now: s.now})
	s.mux.Handle("POST /api/session/{id}/end", endSessionHandler{sessions: s.sessions})
	s.mux.Handle("GET /api/session/{id}/stream", streamHandler{sessions: s.sessions})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = recoverPanics(h)
	h = cors(h)
	return otelhttp.NewHandler(h, "gisa",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func (s *Server) ActiveSessions() int { return s.sessions.Count() }

// Shutdown ends every session.
func (s *Server) Shutdown(ctx context.Context) error {
	ended, err := s.sessions.ShutdownAll(ctx)
	logger.Info("sessions ended", "count", ended)
	return err
}
