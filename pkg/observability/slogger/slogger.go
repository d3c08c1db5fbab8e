// Package slogger implements observability.Observability on top of log/slog.
// It is what the default manager and the CLI use for diagnostics.
package slogger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/JailtonJunior94/logkit/pkg/observability/noop"
)

// Config configures the slog-backed provider.
type Config struct {
	Level  observability.LogLevel
	Format observability.LogFormat
	Output io.Writer
}

// DefaultConfig writes warnings and above as text to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  observability.LogLevelWarn,
		Format: observability.LogFormatText,
		Output: os.Stderr,
	}
}

// Provider pairs a slog logger with a metrics recorder.
type Provider struct {
	logger  *slogLogger
	metrics observability.Metrics
}

// Option configures a Provider.
type Option func(*Provider)

// WithMetrics replaces the default no-op metrics recorder.
func WithMetrics(m observability.Metrics) Option {
	return func(p *Provider) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewProvider builds a Provider from cfg.
func NewProvider(cfg Config, opts ...Option) *Provider {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	p := &Provider{
		logger:  &slogLogger{logger: slog.New(newHandler(cfg))},
		metrics: noop.NewProvider().Metrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func newHandler(cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: convertLogLevel(cfg.Level)}
	if cfg.Format == observability.LogFormatJSON {
		return slog.NewJSONHandler(cfg.Output, opts)
	}
	return slog.NewTextHandler(cfg.Output, opts)
}

func convertLogLevel(level observability.LogLevel) slog.Level {
	switch level {
	case observability.LogLevelDebug:
		return slog.LevelDebug
	case observability.LogLevelWarn:
		return slog.LevelWarn
	case observability.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns the slog-backed logger.
func (p *Provider) Logger() observability.Logger {
	return p.logger
}

// Metrics returns the configured metrics recorder.
func (p *Provider) Metrics() observability.Metrics {
	return p.metrics
}

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(ctx context.Context, msg string, fields ...observability.Field) {
	l.logger.LogAttrs(ctx, slog.LevelDebug, msg, toAttrs(fields)...)
}

func (l *slogLogger) Info(ctx context.Context, msg string, fields ...observability.Field) {
	l.logger.LogAttrs(ctx, slog.LevelInfo, msg, toAttrs(fields)...)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, fields ...observability.Field) {
	l.logger.LogAttrs(ctx, slog.LevelWarn, msg, toAttrs(fields)...)
}

func (l *slogLogger) Error(ctx context.Context, msg string, fields ...observability.Field) {
	l.logger.LogAttrs(ctx, slog.LevelError, msg, toAttrs(fields)...)
}

func (l *slogLogger) With(fields ...observability.Field) observability.Logger {
	args := make([]any, 0, len(fields))
	for _, a := range toAttrs(fields) {
		args = append(args, a)
	}
	return &slogLogger{logger: l.logger.With(args...)}
}

func toAttrs(fields []observability.Field) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, toAttr(f))
	}
	return attrs
}

func toAttr(field observability.Field) slog.Attr {
	switch v := field.Value.(type) {
	case string:
		return slog.String(field.Key, v)
	case int:
		return slog.Int(field.Key, v)
	case int64:
		return slog.Int64(field.Key, v)
	case bool:
		return slog.Bool(field.Key, v)
	case error:
		if v == nil {
			return slog.String(field.Key, "<nil>")
		}
		return slog.String(field.Key, v.Error())
	default:
		return slog.Any(field.Key, v)
	}
}
