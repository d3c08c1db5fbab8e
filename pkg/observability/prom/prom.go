// Package prom implements observability.Metrics with Prometheus collectors.
package prom

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics registers one vector per instrument name. Label names are taken
// from the field keys of the first sample and stay fixed afterwards; samples
// carrying a different key set are dropped.
type Metrics struct {
	registerer prometheus.Registerer
	namespace  string

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

// Option configures Metrics.
type Option func(*Metrics)

// WithRegisterer registers collectors on r instead of the default registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(m *Metrics) {
		m.registerer = r
	}
}

// WithNamespace prefixes every metric name.
func WithNamespace(ns string) Option {
	return func(m *Metrics) {
		m.namespace = ns
	}
}

// New creates a Prometheus-backed metrics recorder.
func New(opts ...Option) *Metrics {
	m := &Metrics{
		registerer: prometheus.DefaultRegisterer,
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Counter returns the counter registered under name, creating it on first use.
func (m *Metrics) Counter(name, description, unit string) observability.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c
	}
	c := &counter{owner: m, name: name, help: helpText(description, unit)}
	m.counters[name] = c
	return c
}

// Histogram returns the histogram registered under name, creating it on first use.
func (m *Metrics) Histogram(name, description, unit string) observability.Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.histograms[name]; ok {
		return h
	}
	h := &histogram{owner: m, name: name, help: helpText(description, unit)}
	m.histograms[name] = h
	return h
}

func helpText(description, unit string) string {
	if unit == "" || unit == "1" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, unit)
}

// register installs c, reusing an equivalent collector that is already registered.
func register[T prometheus.Collector](r prometheus.Registerer, c T) (T, error) {
	if err := r.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func splitFields(fields []observability.Field) ([]string, prometheus.Labels) {
	names := make([]string, 0, len(fields))
	labels := make(prometheus.Labels, len(fields))
	for _, f := range fields {
		key := sanitize(f.Key)
		if _, dup := labels[key]; dup {
			continue
		}
		names = append(names, key)
		labels[key] = fmt.Sprint(f.Value)
	}
	sort.Strings(names)
	return names, labels
}

func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type counter struct {
	owner *Metrics
	name  string
	help  string

	once   sync.Once
	vec    *prometheus.CounterVec
	labels []string
}

func (c *counter) Add(ctx context.Context, value int64, fields ...observability.Field) {
	if value < 0 {
		return
	}
	names, labels := splitFields(fields)
	c.once.Do(func() {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.owner.namespace,
			Name:      c.name,
			Help:      c.help,
		}, names)
		if v, err := register(c.owner.registerer, vec); err == nil {
			c.vec = v
			c.labels = names
		}
	})
	if c.vec == nil || !sameNames(c.labels, names) {
		return
	}
	c.vec.With(labels).Add(float64(value))
}

func (c *counter) Increment(ctx context.Context, fields ...observability.Field) {
	c.Add(ctx, 1, fields...)
}

type histogram struct {
	owner *Metrics
	name  string
	help  string

	once   sync.Once
	vec    *prometheus.HistogramVec
	labels []string
}

func (h *histogram) Record(ctx context.Context, value float64, fields ...observability.Field) {
	names, labels := splitFields(fields)
	h.once.Do(func() {
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: h.owner.namespace,
			Name:      h.name,
			Help:      h.help,
			Buckets:   prometheus.DefBuckets,
		}, names)
		if v, err := register(h.owner.registerer, vec); err == nil {
			h.vec = v
			h.labels = names
		}
	})
	if h.vec == nil || !sameNames(h.labels, names) {
		return
	}
	h.vec.With(labels).Observe(value)
}
