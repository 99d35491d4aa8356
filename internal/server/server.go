package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server is the engine's HTTP front: the session socket plus the
// read-only audit API.
type Server struct {
	Router *chi.Mux
	Port   int

	logger *slog.Logger
	http   *http.Server
}

// New assembles the router. Session routes skip the request timeout;
// a conversation lives as long as its socket.
func New(port int, logger *slog.Logger, sessions *SessionHandler, intakes *IntakeHandlers) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "intake-gateway")
	})

	r.Group(func(r chi.Router) {
		r.Use(TimeoutMiddleware(30 * time.Second))

		r.Get("/healthz", HealthHandler)
		if intakes != nil {
			r.Get("/v1/intakes", intakes.List)
			r.Get("/v1/intakes/{id}", intakes.Get)
		}
	})

	if sessions != nil {
		r.Get("/v1/sessions", sessions.ServeHTTP)
	}

	return &Server{
		Router: r,
		Port:   port,
		logger: logger,
	}
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Router,
	}
	s.logger.Info("starting server", slog.Int("port", s.Port))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests; open sessions see their contexts
// cancelled and record an abandoned outcome.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
