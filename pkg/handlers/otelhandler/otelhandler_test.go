package otelhandler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/logging"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
	flushes int
}

func (e *memoryExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryExporter) Shutdown(context.Context) error { return nil }

func (e *memoryExporter) ForceFlush(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushes++
	return nil
}

func (e *memoryExporter) exported() []sdklog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sdklog.Record(nil), e.records...)
}

func newProvider(t *testing.T) (*sdklog.LoggerProvider, *memoryExporter) {
	t.Helper()
	exp := &memoryExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider, exp
}

func attributes(r sdklog.Record) map[string]otellog.Value {
	out := make(map[string]otellog.Value)
	r.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value
		return true
	})
	return out
}

func TestPublish(t *testing.T) {
	provider, exp := newProvider(t)
	h, err := New(provider, DefaultConfig(), logging.WithLevel(logging.Config))
	require.NoError(t, err)

	at := time.Date(2024, 1, 15, 13, 4, 5, 0, time.UTC)
	h.Publish(logging.NewRecord(logging.Fine, "dropped"))
	h.Publish(logging.NewRecord(logging.Warning, "retry {0}",
		logging.WithParams(3),
		logging.WithLoggerName("svc.http"),
		logging.WithSource("svc/http", "Do"),
		logging.WithTime(at),
		logging.WithGoroutineID(12),
		logging.WithError(errors.New("timeout")),
	))

	records := exp.exported()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "retry 3", rec.Body().AsString())
	assert.Equal(t, otellog.SeverityWarn, rec.Severity())
	assert.Equal(t, "WARNING", rec.SeverityText())
	assert.Equal(t, at, rec.Timestamp())
	assert.Equal(t, DefaultScope, rec.InstrumentationScope().Name)

	attrs := attributes(rec)
	assert.Equal(t, "svc.http", attrs[AttrLoggerName].AsString())
	assert.Equal(t, int64(900), attrs[AttrLevelValue].AsInt64())
	assert.Equal(t, int64(12), attrs[AttrThreadID].AsInt64())
	assert.Equal(t, "svc/http", attrs[AttrCodeNS].AsString())
	assert.Equal(t, "Do", attrs[AttrCodeFunction].AsString())
	assert.Equal(t, "timeout", attrs[AttrExceptionMsg].AsString())
}

func TestSeverity(t *testing.T) {
	scenarios := []struct {
		level    *logging.Level
		expected otellog.Severity
	}{
		{level: logging.Severe, expected: otellog.SeverityError},
		{level: logging.Warning, expected: otellog.SeverityWarn},
		{level: logging.Info, expected: otellog.SeverityInfo},
		{level: logging.Config, expected: otellog.SeverityDebug4},
		{level: logging.Fine, expected: otellog.SeverityDebug},
		{level: logging.Finer, expected: otellog.SeverityTrace4},
		{level: logging.Finest, expected: otellog.SeverityTrace},
		{level: logging.NewLevel("NOTICE_OTEL", 850), expected: otellog.SeverityInfo},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.level.Name(), func(t *testing.T) {
			assert.Equal(t, scenario.expected, Severity(scenario.level))
		})
	}
}

func TestFlushAndClose(t *testing.T) {
	provider, exp := newProvider(t)
	h, err := New(provider, Config{})
	require.NoError(t, err)

	h.Flush()
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, 2, exp.flushes)

	h.Publish(logging.NewRecord(logging.Severe, "after close"))
	assert.Empty(t, exp.exported())

	_, err = New(nil, DefaultConfig())
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	provider, exp := newProvider(t)
	m := logging.NewManager()
	Register(m, provider)

	require.NoError(t, m.ReadConfiguration(strings.NewReader("handlers=OTelHandler\nOTelHandler.scope=orders\n")))
	m.Logger("orders").Warning("stock low")

	records := exp.exported()
	require.Len(t, records, 1)
	assert.Equal(t, "orders", records[0].InstrumentationScope().Name)
	assert.Equal(t, "stock low", records[0].Body().AsString())
}
