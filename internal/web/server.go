// Package web provides the HTTP trigger surface for export and
// reconciliation runs.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/permits/internal/config"
	"github.com/JonMunkholm/permits/internal/core"
	"github.com/JonMunkholm/permits/internal/web/middleware"
)

// Runner executes pipeline runs. *core.Service satisfies it.
type Runner interface {
	Export(ctx context.Context, req core.ExportRequest) (core.ExportResult, error)
	ProcessResults(ctx context.Context) (core.ReconcileResult, error)
}

// Server is the HTTP server for the permit export service.
type Server struct {
	runner  Runner
	cfg     config.ServerConfig
	router  *chi.Mux
	server  *http.Server
	metrics http.Handler
}

// NewServer creates a Server. metrics may be nil to disable /metrics.
func NewServer(runner Runner, srv config.ServerConfig, sec config.SecurityConfig, metrics http.Handler) *Server {
	s := &Server{
		runner:  runner,
		cfg:     srv,
		router:  chi.NewRouter(),
		metrics: metrics,
	}
	s.setupMiddleware(sec)
	s.setupRoutes(sec)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(sec config.SecurityConfig) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(sec.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.RequestTimeout))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(sec config.SecurityConfig) {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(unauthorized, sec.ExportToken, sec.AccessKey))

		r.Get("/export", s.handleExport)
		r.Get("/processResultFile", s.handleProcessResultFile)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	slog.Info("server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
