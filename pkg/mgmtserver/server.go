// Package mgmtserver serves the logger management operations over HTTP.
package mgmtserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/JailtonJunior94/logkit/pkg/logging"
	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a logging.Management over a chi router.
type Server struct {
	router            chi.Router
	httpServer        *http.Server
	config            Config
	management        *logging.Management
	observability     observability.Observability
	healthChecks      map[string]HealthCheckFunc
	gatherer          prometheus.Gatherer
	customMiddlewares []func(http.Handler) http.Handler
	shutdownOnce      sync.Once
}

// New creates a management server for m.
func New(m *logging.Manager, o11y observability.Observability, opts ...Option) (*Server, error) {
	if m == nil {
		return nil, errors.New("mgmtserver: manager is required")
	}
	if o11y == nil {
		return nil, errors.New("mgmtserver: observability is required")
	}

	srv := &Server{
		config:        DefaultConfig(),
		management:    logging.NewManagement(m),
		observability: o11y,
		healthChecks:  make(map[string]HealthCheckFunc),
	}

	for _, opt := range opts {
		opt(srv)
	}

	if err := srv.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	srv.router = chi.NewRouter()
	srv.registerMiddlewares()
	srv.registerSupportEndpoints()
	srv.registerLoggerRoutes()

	srv.httpServer = &http.Server{
		Addr:         srv.config.Address,
		Handler:      srv.router,
		ReadTimeout:  srv.config.ReadTimeout,
		WriteTimeout: srv.config.WriteTimeout,
		IdleTimeout:  srv.config.IdleTimeout,
	}

	return srv, nil
}

// Handler returns the router, for mounting into another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.config.Address
}

func (s *Server) registerMiddlewares() {
	s.router.Use(recoverMiddleware(s.observability))
	s.router.Use(requestIDMiddleware())
	s.router.Use(bodyLimitMiddleware(int64(s.config.BodyLimit)))

	for _, middleware := range s.customMiddlewares {
		s.router.Use(middleware)
	}
}

func (s *Server) registerSupportEndpoints() {
	if s.config.EnableHealthChecks {
		s.router.Get("/health", healthHandler(s.config, s.management, s.healthChecks, s.observability))
	}

	if s.config.EnableMetrics {
		if s.gatherer != nil {
			s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
		} else {
			s.router.Handle("/metrics", promhttp.Handler())
		}
		s.observability.Logger().Info(context.Background(), "metrics endpoint enabled")
	}
}

func (s *Server) registerLoggerRoutes() {
	s.router.Route("/loggers", func(r chi.Router) {
		r.Get("/", s.listLoggers)
		r.Get("/level", s.getLevel)
		r.Put("/level", s.setLevel)
	})
}
