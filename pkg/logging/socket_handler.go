package logging

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// SocketConfig configures a SocketHandler.
type SocketConfig struct {
	Host string
	Port int
	// DialTimeout bounds each connection attempt; 0 means no timeout.
	DialTimeout time.Duration
	// ConnectRetries is the number of extra attempts after the first dial fails.
	ConnectRetries int
	// RetryInterval is the initial backoff between attempts.
	RetryInterval time.Duration
}

func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		DialTimeout:   10 * time.Second,
		RetryInterval: 500 * time.Millisecond,
	}
}

func (c SocketConfig) Validate() error {
	if c.Host == "" {
		return errors.New("logging: socket host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("logging: socket port must be between 1 and 65535")
	}
	if c.ConnectRetries < 0 {
		return errors.New("logging: connect retries must not be negative")
	}
	return nil
}

func (c SocketConfig) address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SocketHandler streams formatted records over TCP and flushes after each
// one. Defaults are level All and an XMLFormatter.
type SocketHandler struct {
	StreamHandler
	addr string
}

func NewSocketHandler(cfg SocketConfig, opts ...HandlerOption) (*SocketHandler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &SocketHandler{addr: cfg.address()}
	s := buildSettings(All, NewXMLFormatter(), opts)
	if err := s.apply(&h.BaseHandler); err != nil {
		return nil, err
	}

	conn, err := dialWithRetry(cfg)
	if err != nil {
		return nil, &HandlerError{Op: "connect", Message: h.addr, Err: err}
	}

	h.mu.Lock()
	h.setOutputLocked(conn, conn)
	h.mu.Unlock()
	return h, nil
}

func dialWithRetry(cfg SocketConfig) (net.Conn, error) {
	policy := backoff.NewExponentialBackOff()
	if cfg.RetryInterval > 0 {
		policy.InitialInterval = cfg.RetryInterval
	}

	var conn net.Conn
	err := backoff.Retry(func() error {
		c, err := net.DialTimeout("tcp", cfg.address(), cfg.DialTimeout)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, backoff.WithMaxRetries(policy, uint64(cfg.ConnectRetries)))
	return conn, err
}

// Addr returns the remote "host:port".
func (h *SocketHandler) Addr() string { return h.addr }

func (h *SocketHandler) Publish(r *Record) {
	h.mu.Lock()
	fails := h.publishLocked(r)
	fails = append(fails, h.flushLocked()...)
	h.mu.Unlock()
	h.report(fails)
}
