// Package otelhandler emits log records through an OpenTelemetry
// LoggerProvider, mapping levels onto OpenTelemetry severities.
package otelhandler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/logging"
	otellog "go.opentelemetry.io/otel/log"
)

// Name is the handler name used in ".handlers" properties.
const Name = "OTelHandler"

const (
	DefaultScope = "github.com/JailtonJunior94/logkit"

	AttrLoggerName   = "logger.name"
	AttrSequence     = "log.record.sequence"
	AttrLevelValue   = "log.level.value"
	AttrThreadID     = "thread.id"
	AttrCodeFunction = "code.function.name"
	AttrCodeNS       = "code.namespace"
	AttrExceptionMsg = "exception.message"
)

type flusher interface {
	ForceFlush(ctx context.Context) error
}

// Config names the instrumentation scope records are emitted under.
type Config struct {
	Scope        string
	FlushTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{Scope: DefaultScope, FlushTimeout: 5 * time.Second}
}

// Handler emits structured records: the body is the formatted message and
// the record fields become attributes. The formatter is not used. The
// provider belongs to the caller; Close flushes it but does not shut it down.
type Handler struct {
	logging.BaseHandler

	provider     otellog.LoggerProvider
	logger       otellog.Logger
	flushTimeout time.Duration
	closed       atomic.Bool
}

func New(provider otellog.LoggerProvider, cfg Config, opts ...logging.HandlerOption) (*Handler, error) {
	if provider == nil {
		return nil, errors.New("otelhandler: logger provider is required")
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultConfig().FlushTimeout
	}

	h := &Handler{
		provider:     provider,
		logger:       provider.Logger(cfg.Scope),
		flushTimeout: cfg.FlushTimeout,
	}
	if err := h.Init(logging.All, nil, opts...); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Handler) Publish(r *logging.Record) {
	if h.closed.Load() || !h.IsLoggable(r) {
		return
	}

	var rec otellog.Record
	rec.SetTimestamp(r.Time())
	rec.SetObservedTimestamp(time.Now())
	rec.SetSeverity(Severity(r.Level()))
	rec.SetSeverityText(r.Level().Name())
	rec.SetBody(otellog.StringValue(logging.FormatMessage(r)))
	rec.AddAttributes(
		otellog.String(AttrLoggerName, r.LoggerName()),
		otellog.Int64(AttrSequence, r.Sequence()),
		otellog.Int64(AttrLevelValue, int64(r.Level().Value())),
		otellog.Int64(AttrThreadID, r.GoroutineID()),
	)
	if class := r.SourceClass(); class != "" {
		rec.AddAttributes(otellog.String(AttrCodeNS, class))
	}
	if method := r.SourceMethod(); method != "" {
		rec.AddAttributes(otellog.String(AttrCodeFunction, method))
	}
	if err := r.Err(); err != nil {
		rec.AddAttributes(otellog.String(AttrExceptionMsg, err.Error()))
	}

	h.logger.Emit(context.Background(), rec)
}

// Flush forces the provider to export buffered records when it supports it.
func (h *Handler) Flush() {
	f, ok := h.provider.(flusher)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.flushTimeout)
	defer cancel()
	if err := f.ForceFlush(ctx); err != nil {
		h.ReportError("cannot flush logger provider", err, logging.FlushFailure)
	}
}

func (h *Handler) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.Flush()
	h.SetLevel(logging.Off)
	return nil
}

// Severity maps a level onto the OpenTelemetry severity range.
func Severity(l *logging.Level) otellog.Severity {
	v := l.Value()
	switch {
	case v >= logging.Severe.Value():
		return otellog.SeverityError
	case v >= logging.Warning.Value():
		return otellog.SeverityWarn
	case v >= logging.Info.Value():
		return otellog.SeverityInfo
	case v >= logging.Config.Value():
		return otellog.SeverityDebug4
	case v >= logging.Fine.Value():
		return otellog.SeverityDebug
	case v >= logging.Finer.Value():
		return otellog.SeverityTrace4
	default:
		return otellog.SeverityTrace
	}
}

// Register makes OTelHandler usable in configuration, emitting through
// provider. Properties: <name>.scope, .flushTimeoutMillis.
func Register(m *logging.Manager, provider otellog.LoggerProvider) {
	m.RegisterHandlerFactory(Name, func(m *logging.Manager, name string) (logging.Handler, error) {
		def := DefaultConfig()
		cfg := Config{
			Scope:        m.StringProperty(name+".scope", def.Scope),
			FlushTimeout: time.Duration(m.Int64Property(name+".flushTimeoutMillis", def.FlushTimeout.Milliseconds())) * time.Millisecond,
		}
		return New(provider, cfg, m.HandlerOptions(name)...)
	})
}
