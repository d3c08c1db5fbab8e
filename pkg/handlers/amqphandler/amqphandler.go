// Package amqphandler publishes log records to a RabbitMQ exchange.
package amqphandler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/handlers/payload"
	"github.com/JailtonJunior94/logkit/pkg/logging"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Name is the handler name used in ".handlers" properties.
const Name = "AMQPHandler"

// Publisher is the part of *amqp.Channel the handler uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Config selects where records go. An empty RoutingKey routes each record
// by "<logger>.<level>", e.g. "svc.orders.warning".
type Config struct {
	Exchange       string
	RoutingKey     string
	AppID          string
	Persistent     bool
	PublishTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Exchange:       "logs",
		AppID:          "logkit",
		Persistent:     true,
		PublishTimeout: 5 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("amqphandler: publish timeout must be positive, got %v", c.PublishTimeout)
	}
	return nil
}

// Handler publishes one message per record. Channels are not safe for
// concurrent publishing, so publishes are serialized. The channel belongs to
// the caller and stays open after Close.
type Handler struct {
	logging.BaseHandler

	cfg    Config
	mu     sync.Mutex
	ch     Publisher
	closed atomic.Bool
}

func New(ch Publisher, cfg Config, opts ...logging.HandlerOption) (*Handler, error) {
	if ch == nil {
		return nil, errors.New("amqphandler: channel is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Handler{ch: ch, cfg: cfg}
	if err := h.Init(logging.All, payload.NewFormatter(), opts...); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Handler) Exchange() string { return h.cfg.Exchange }

func (h *Handler) routingKey(r *logging.Record) string {
	if h.cfg.RoutingKey != "" {
		return h.cfg.RoutingKey
	}
	key := strings.ToLower(r.Level().Name())
	if r.LoggerName() != "" {
		key = r.LoggerName() + "." + key
	}
	return key
}

func (h *Handler) Publish(r *logging.Record) {
	if h.closed.Load() || !h.IsLoggable(r) {
		return
	}

	id := payload.NewID()
	body, contentType, err := payload.Body(h.Formatter(), r, id)
	if err != nil {
		h.ReportError("cannot encode record", err, logging.FormatFailure)
		return
	}

	msg := amqp.Publishing{
		ContentType:   contentType,
		MessageId:     uuid.NewString(),
		CorrelationId: id.String(),
		Timestamp:     r.Time(),
		Type:          r.Level().Name(),
		AppId:         h.cfg.AppID,
		Body:          body,
		Headers: amqp.Table{
			"logger":      r.LoggerName(),
			"level":       r.Level().Name(),
			"level_value": r.Level().Value(),
			"sequence":    r.Sequence(),
		},
	}
	if h.cfg.Persistent {
		msg.DeliveryMode = amqp.Persistent
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.PublishTimeout)
	defer cancel()

	h.mu.Lock()
	err = h.ch.PublishWithContext(ctx, h.cfg.Exchange, h.routingKey(r), false, false, msg)
	h.mu.Unlock()
	if err != nil {
		h.ReportError("cannot publish record to "+h.cfg.Exchange, err, logging.WriteFailure)
	}
}

func (h *Handler) Flush() {}

// Close stops publishing. It does not close the channel.
func (h *Handler) Close() error {
	if !h.closed.Swap(true) {
		h.SetLevel(logging.Off)
	}
	return nil
}

// Register makes AMQPHandler usable in configuration, publishing on ch.
// Properties: <name>.exchange, .routingKey, .appId, .persistent,
// .publishTimeoutMillis.
func Register(m *logging.Manager, ch Publisher) {
	m.RegisterHandlerFactory(Name, func(m *logging.Manager, name string) (logging.Handler, error) {
		def := DefaultConfig()
		cfg := Config{
			Exchange:       m.StringProperty(name+".exchange", def.Exchange),
			RoutingKey:     m.StringProperty(name+".routingKey", ""),
			AppID:          m.StringProperty(name+".appId", def.AppID),
			Persistent:     m.BoolProperty(name+".persistent", def.Persistent),
			PublishTimeout: time.Duration(m.Int64Property(name+".publishTimeoutMillis", def.PublishTimeout.Milliseconds())) * time.Millisecond,
		}
		return New(ch, cfg, m.HandlerOptions(name)...)
	})
}
