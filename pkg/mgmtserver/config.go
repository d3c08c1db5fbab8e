package mgmtserver

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the management server configuration.
type Config struct {
	Address            string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	BodyLimit          int
	ServiceName        string
	ServiceVersion     string
	EnableMetrics      bool
	EnableHealthChecks bool
}

// DefaultConfig returns a Config listening on :9090 with health checks on.
func DefaultConfig() Config {
	return Config{
		Address:            ":9090",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		IdleTimeout:        60 * time.Second,
		ShutdownTimeout:    15 * time.Second,
		BodyLimit:          64 * 1024,
		ServiceName:        "logkit",
		ServiceVersion:     "unknown",
		EnableHealthChecks: true,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return errors.New("address is required")
	}

	if strings.TrimSpace(c.ServiceName) == "" {
		return errors.New("service name is required")
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %v", c.ReadTimeout)
	}

	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %v", c.WriteTimeout)
	}

	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive, got %v", c.IdleTimeout)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %v", c.ShutdownTimeout)
	}

	if c.BodyLimit <= 0 {
		return fmt.Errorf("body limit must be positive, got %d", c.BodyLimit)
	}

	return nil
}
