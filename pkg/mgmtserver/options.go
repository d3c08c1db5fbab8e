package mgmtserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option is a function that configures a Server.
type Option func(*Server)

// WithConfig sets the full configuration for the server.
func WithConfig(cfg Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithAddress sets the listen address. A bare port gets a leading colon.
func WithAddress(addr string) Option {
	return func(s *Server) {
		if !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
		s.config.Address = addr
	}
}

// WithReadTimeout sets the read timeout.
func WithReadTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.config.ReadTimeout = timeout
	}
}

// WithWriteTimeout sets the write timeout.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.config.WriteTimeout = timeout
	}
}

// WithMetrics enables the /metrics endpoint backed by gatherer, or by the
// default Prometheus registry when gatherer is nil.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.config.EnableMetrics = true
		s.gatherer = gatherer
	}
}

// WithHealthChecks registers health checks reported by /health.
func WithHealthChecks(checks map[string]HealthCheckFunc) Option {
	return func(s *Server) {
		s.config.EnableHealthChecks = true
		for name, check := range checks {
			s.healthChecks[name] = check
		}
	}
}

// WithMiddleware adds a custom middleware to the server.
func WithMiddleware(middleware func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		s.customMiddlewares = append(s.customMiddlewares, middleware)
	}
}

// WithServiceVersion sets the version reported by /health.
func WithServiceVersion(version string) Option {
	return func(s *Server) {
		s.config.ServiceVersion = version
	}
}
