// Package zaphandler forwards log records to a zap core.
package zaphandler

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/JailtonJunior94/logkit/pkg/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Name is the handler name used in ".handlers" properties.
const Name = "ZapHandler"

// Handler writes each record as a zap entry. The core's own level applies
// after the handler's. The formatter is not used; the core's encoder renders
// the entry.
type Handler struct {
	logging.BaseHandler

	core   zapcore.Core
	closed atomic.Bool
}

func New(core zapcore.Core, opts ...logging.HandlerOption) (*Handler, error) {
	if core == nil {
		return nil, errors.New("zaphandler: core is required")
	}
	h := &Handler{core: core}
	if err := h.Init(logging.All, nil, opts...); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Handler) Publish(r *logging.Record) {
	if h.closed.Load() || !h.IsLoggable(r) {
		return
	}

	entry := zapcore.Entry{
		Level:      ZapLevel(r.Level()),
		Time:       r.Time(),
		LoggerName: r.LoggerName(),
		Message:    logging.FormatMessage(r),
	}
	ce := h.core.Check(entry, nil)
	if ce == nil {
		return
	}

	fields := []zap.Field{
		zap.String("level_name", r.Level().Name()),
		zap.Int64("sequence", r.Sequence()),
		zap.Int64("goroutine", r.GoroutineID()),
	}
	if class := r.SourceClass(); class != "" {
		fields = append(fields, zap.String("source_class", class), zap.String("source_method", r.SourceMethod()))
	}
	if err := r.Err(); err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

func (h *Handler) Flush() {
	if err := h.core.Sync(); err != nil {
		h.ReportError("cannot sync zap core", err, logging.FlushFailure)
	}
}

func (h *Handler) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.SetLevel(logging.Off)
	if err := h.core.Sync(); err != nil {
		return &logging.HandlerError{Op: "close", Message: "zap core sync", Err: err}
	}
	return nil
}

// ZapLevel maps a level onto zap's: FINE and below become debug.
func ZapLevel(l *logging.Level) zapcore.Level {
	v := l.Value()
	switch {
	case v >= logging.Severe.Value():
		return zapcore.ErrorLevel
	case v >= logging.Warning.Value():
		return zapcore.WarnLevel
	case v >= logging.Info.Value():
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Register makes ZapHandler usable in configuration. With a nil core the
// factory builds one from zap's presets: <name>.development selects the
// development config, <name>.zapEncoding picks "json" or "console".
func Register(m *logging.Manager, core zapcore.Core) {
	m.RegisterHandlerFactory(Name, func(m *logging.Manager, name string) (logging.Handler, error) {
		c := core
		if c == nil {
			built, err := buildCore(m.BoolProperty(name+".development", false), m.StringProperty(name+".zapEncoding", ""))
			if err != nil {
				return nil, err
			}
			c = built
		}
		return New(c, m.HandlerOptions(name)...)
	})
}

func buildCore(development bool, encoding string) (zapcore.Core, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	if encoding != "" {
		cfg.Encoding = encoding
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("zaphandler: %w", err)
	}
	return logger.Core(), nil
}
