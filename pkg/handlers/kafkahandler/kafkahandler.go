// Package kafkahandler publishes log records to a Kafka topic.
package kafkahandler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/handlers/payload"
	"github.com/JailtonJunior94/logkit/pkg/logging"
	"github.com/segmentio/kafka-go"
)

// Name is the handler name used in ".handlers" properties.
const Name = "KafkaHandler"

const (
	HeaderID          = "log_id"
	HeaderContentType = "content_type"
	HeaderLevel       = "level"
)

// Config configures the Kafka writer.
type Config struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	Async        bool
	RequiredAcks kafka.RequiredAcks
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    100,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
}

func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafkahandler: at least one broker is required")
	}
	if strings.TrimSpace(c.Topic) == "" {
		return errors.New("kafkahandler: topic is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("kafkahandler: batch size must be positive, got %d", c.BatchSize)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("kafkahandler: write timeout must be positive, got %v", c.WriteTimeout)
	}
	return nil
}

// Writer is the part of *kafka.Writer the handler uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler writes one message per record, keyed by logger name so a logger's
// records stay ordered within a partition.
type Handler struct {
	logging.BaseHandler

	writer       Writer
	topic        string
	writeTimeout time.Duration

	// mu is held shared by writes and exclusively by Close, so Close waits
	// for in-flight writes and no write reaches a closed writer.
	mu     sync.RWMutex
	closed bool
}

// New creates a handler backed by a kafka.Writer. Records are rendered as
// payload documents unless a formatter is configured.
func New(cfg Config, opts ...logging.HandlerOption) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Async:        cfg.Async,
		RequiredAcks: cfg.RequiredAcks,
	}
	return NewWithWriter(writer, cfg.Topic, cfg.WriteTimeout, opts...)
}

// NewWithWriter wraps an existing writer.
func NewWithWriter(w Writer, topic string, writeTimeout time.Duration, opts ...logging.HandlerOption) (*Handler, error) {
	if w == nil {
		return nil, errors.New("kafkahandler: writer is required")
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultConfig().WriteTimeout
	}
	h := &Handler{writer: w, topic: topic, writeTimeout: writeTimeout}
	if err := h.Init(logging.All, payload.NewFormatter(), opts...); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Handler) Topic() string { return h.topic }

func (h *Handler) Publish(r *logging.Record) {
	if !h.IsLoggable(r) {
		return
	}

	id := payload.NewID()
	body, contentType, err := payload.Body(h.Formatter(), r, id)
	if err != nil {
		h.ReportError("cannot encode record", err, logging.FormatFailure)
		return
	}

	msg := kafka.Message{
		Key:   []byte(r.LoggerName()),
		Value: body,
		Time:  r.Time(),
		Headers: []kafka.Header{
			{Key: HeaderID, Value: []byte(id.String())},
			{Key: HeaderContentType, Value: []byte(contentType)},
			{Key: HeaderLevel, Value: []byte(r.Level().Name())},
		},
	}

	if err := h.write(msg); err != nil {
		h.ReportError("cannot write record to "+h.topic, err, logging.WriteFailure)
	}
}

func (h *Handler) write(msg kafka.Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
	defer cancel()
	return h.writer.WriteMessages(ctx, msg)
}

// Flush is a no-op: synchronous writes return once the batch is acknowledged,
// and async batches are drained by Close.
func (h *Handler) Flush() {}

// Close waits for in-flight writes, then closes the writer. Later records are dropped.
func (h *Handler) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.SetLevel(logging.Off)
	err := h.writer.Close()
	h.mu.Unlock()

	if err != nil {
		h.ReportError("cannot close kafka writer", err, logging.CloseFailure)
		return &logging.HandlerError{Op: "close", Message: h.topic, Err: err}
	}
	return nil
}

// Register makes KafkaHandler usable in configuration. Properties:
// <name>.brokers (comma separated), .topic, .batchSize,
// .batchTimeoutMillis, .writeTimeoutMillis, .async.
func Register(m *logging.Manager) {
	m.RegisterHandlerFactory(Name, factory)
}

func factory(m *logging.Manager, name string) (logging.Handler, error) {
	def := DefaultConfig()
	cfg := Config{
		Brokers:      m.ListProperty(name + ".brokers"),
		Topic:        m.StringProperty(name+".topic", ""),
		BatchSize:    m.IntProperty(name+".batchSize", def.BatchSize),
		BatchTimeout: time.Duration(m.Int64Property(name+".batchTimeoutMillis", def.BatchTimeout.Milliseconds())) * time.Millisecond,
		WriteTimeout: time.Duration(m.Int64Property(name+".writeTimeoutMillis", def.WriteTimeout.Milliseconds())) * time.Millisecond,
		Async:        m.BoolProperty(name+".async", false),
		RequiredAcks: def.RequiredAcks,
	}
	return New(cfg, m.HandlerOptions(name)...)
}
