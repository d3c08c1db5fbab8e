package otel

import (
	"context"
	"sync"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"go.opentelemetry.io/otel/metric"
)

type otelMetrics struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]observability.Counter
	histograms map[string]observability.Histogram
}

func newOtelMetrics(meter metric.Meter) *otelMetrics {
	return &otelMetrics{
		meter:      meter,
		counters:   make(map[string]observability.Counter),
		histograms: make(map[string]observability.Histogram),
	}
}

func (m *otelMetrics) Counter(name, description, unit string) observability.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c
	}

	var c observability.Counter = noopCounter{}
	counter, err := m.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err == nil {
		c = &otelCounter{counter: counter}
	}
	m.counters[name] = c
	return c
}

func (m *otelMetrics) Histogram(name, description, unit string) observability.Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.histograms[name]; ok {
		return h
	}

	var h observability.Histogram = noopHistogram{}
	histogram, err := m.meter.Float64Histogram(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err == nil {
		h = &otelHistogram{histogram: histogram}
	}
	m.histograms[name] = h
	return h
}

type otelCounter struct {
	counter metric.Int64Counter
}

func (c *otelCounter) Add(ctx context.Context, value int64, fields ...observability.Field) {
	if len(fields) == 0 {
		c.counter.Add(ctx, value)
		return
	}
	c.counter.Add(ctx, value, metric.WithAttributes(convertFieldsToAttributes(fields)...))
}

func (c *otelCounter) Increment(ctx context.Context, fields ...observability.Field) {
	c.Add(ctx, 1, fields...)
}

type otelHistogram struct {
	histogram metric.Float64Histogram
}

func (h *otelHistogram) Record(ctx context.Context, value float64, fields ...observability.Field) {
	if len(fields) == 0 {
		h.histogram.Record(ctx, value)
		return
	}
	h.histogram.Record(ctx, value, metric.WithAttributes(convertFieldsToAttributes(fields)...))
}

type noopCounter struct{}

func (noopCounter) Add(ctx context.Context, value int64, fields ...observability.Field) {}

func (noopCounter) Increment(ctx context.Context, fields ...observability.Field) {}

type noopHistogram struct{}

func (noopHistogram) Record(ctx context.Context, value float64, fields ...observability.Field) {}
