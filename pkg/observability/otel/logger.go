package otel

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	otellog "go.opentelemetry.io/otel/log"
)

// otelLogger writes diagnostics to the console through slog and exports
// the same entries through the OTLP log pipeline.
type otelLogger struct {
	otelLog     otellog.Logger
	slogLogger  *slog.Logger
	serviceName string
	fields      []observability.Field
}

func newOtelLogger(config *Config, otelLog otellog.Logger) *otelLogger {
	return &otelLogger{
		otelLog:     otelLog,
		slogLogger:  createSlogLogger(config.LogLevel, config.LogFormat, os.Stderr),
		serviceName: config.ServiceName,
	}
}

func createSlogLogger(level observability.LogLevel, format observability.LogFormat, output io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: convertLogLevel(level)}
	if format == observability.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

func convertLogLevel(level observability.LogLevel) slog.Level {
	levelMap := map[observability.LogLevel]slog.Level{
		observability.LogLevelDebug: slog.LevelDebug,
		observability.LogLevelInfo:  slog.LevelInfo,
		observability.LogLevelWarn:  slog.LevelWarn,
		observability.LogLevelError: slog.LevelError,
	}
	if slogLevel, exists := levelMap[level]; exists {
		return slogLevel
	}
	return slog.LevelInfo
}

func (l *otelLogger) Debug(ctx context.Context, msg string, fields ...observability.Field) {
	l.log(ctx, slog.LevelDebug, msg, fields...)
}

func (l *otelLogger) Info(ctx context.Context, msg string, fields ...observability.Field) {
	l.log(ctx, slog.LevelInfo, msg, fields...)
}

func (l *otelLogger) Warn(ctx context.Context, msg string, fields ...observability.Field) {
	l.log(ctx, slog.LevelWarn, msg, fields...)
}

func (l *otelLogger) Error(ctx context.Context, msg string, fields ...observability.Field) {
	l.log(ctx, slog.LevelError, msg, fields...)
}

func (l *otelLogger) log(ctx context.Context, level slog.Level, msg string, fields ...observability.Field) {
	allFields := make([]observability.Field, 0, len(l.fields)+len(fields)+1)
	allFields = append(allFields, l.fields...)
	allFields = append(allFields, fields...)
	allFields = append(allFields, observability.String("service", l.serviceName))

	if l.slogLogger.Enabled(ctx, level) {
		attrs := make([]slog.Attr, 0, len(allFields))
		for _, field := range allFields {
			attrs = append(attrs, convertFieldToSlogAttr(field))
		}
		l.slogLogger.LogAttrs(ctx, level, msg, attrs...)
	}

	l.emit(ctx, level, msg, allFields)
}

func (l *otelLogger) emit(ctx context.Context, level slog.Level, msg string, fields []observability.Field) {
	attrs := make([]otellog.KeyValue, 0, len(fields))
	for _, field := range fields {
		attrs = append(attrs, convertFieldToLogKeyValue(field))
	}

	var record otellog.Record
	record.SetTimestamp(time.Now())
	record.SetBody(otellog.StringValue(msg))
	record.SetSeverity(convertSlogLevelToOTel(level))
	record.SetSeverityText(level.String())
	record.AddAttributes(attrs...)

	l.otelLog.Emit(ctx, record)
}

func convertSlogLevelToOTel(level slog.Level) otellog.Severity {
	switch level {
	case slog.LevelDebug:
		return otellog.SeverityDebug
	case slog.LevelWarn:
		return otellog.SeverityWarn
	case slog.LevelError:
		return otellog.SeverityError
	default:
		return otellog.SeverityInfo
	}
}

func (l *otelLogger) With(fields ...observability.Field) observability.Logger {
	merged := make([]observability.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &otelLogger{
		otelLog:     l.otelLog,
		slogLogger:  l.slogLogger,
		serviceName: l.serviceName,
		fields:      merged,
	}
}
