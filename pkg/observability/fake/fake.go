package fake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/observability"
)

// Provider captures every diagnostic entry and metric sample so tests can
// assert on what the logging packages reported about themselves.
type Provider struct {
	logger  *FakeLogger
	metrics *FakeMetrics
}

// NewProvider creates a new fake observability provider for testing.
func NewProvider() *Provider {
	return &Provider{
		logger:  NewFakeLogger(),
		metrics: NewFakeMetrics(),
	}
}

// Logger returns the fake logger.
func (p *Provider) Logger() observability.Logger {
	return p.logger
}

// Metrics returns the fake metrics recorder.
func (p *Provider) Metrics() observability.Metrics {
	return p.metrics
}

// FakeLogger returns the concrete logger for assertions.
func (p *Provider) FakeLogger() *FakeLogger {
	return p.logger
}

// FakeMetrics returns the concrete metrics recorder for assertions.
func (p *Provider) FakeMetrics() *FakeMetrics {
	return p.metrics
}

// FakeLogger captures all log operations for test assertions.
type FakeLogger struct {
	mu      *sync.RWMutex
	entries *[]LogEntry
	fields  []observability.Field
}

// LogEntry represents a captured log entry.
type LogEntry struct {
	Level     observability.LogLevel
	Message   string
	Fields    []observability.Field
	Timestamp time.Time
}

// Field returns the value of the first field with the given key.
func (e LogEntry) Field(key string) (any, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// NewFakeLogger creates a new fake logger.
func NewFakeLogger() *FakeLogger {
	entries := make([]LogEntry, 0)
	return &FakeLogger{
		mu:      &sync.RWMutex{},
		entries: &entries,
	}
}

func (l *FakeLogger) Debug(ctx context.Context, msg string, fields ...observability.Field) {
	l.capture(observability.LogLevelDebug, msg, fields)
}

func (l *FakeLogger) Info(ctx context.Context, msg string, fields ...observability.Field) {
	l.capture(observability.LogLevelInfo, msg, fields)
}

func (l *FakeLogger) Warn(ctx context.Context, msg string, fields ...observability.Field) {
	l.capture(observability.LogLevelWarn, msg, fields)
}

func (l *FakeLogger) Error(ctx context.Context, msg string, fields ...observability.Field) {
	l.capture(observability.LogLevelError, msg, fields)
}

func (l *FakeLogger) capture(level observability.LogLevel, msg string, fields []observability.Field) {
	all := make([]observability.Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, LogEntry{
		Level:     level,
		Message:   msg,
		Fields:    all,
		Timestamp: time.Now(),
	})
}

// With creates a child logger sharing the same capture buffer.
func (l *FakeLogger) With(fields ...observability.Field) observability.Logger {
	merged := make([]observability.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &FakeLogger{
		mu:      l.mu,
		entries: l.entries,
		fields:  merged,
	}
}

// GetEntries returns all captured log entries.
func (l *FakeLogger) GetEntries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]LogEntry, len(*l.entries))
	copy(result, *l.entries)
	return result
}

// EntriesContaining returns the captured entries whose message contains substr.
func (l *FakeLogger) EntriesContaining(substr string) []LogEntry {
	var result []LogEntry
	for _, e := range l.GetEntries() {
		if strings.Contains(e.Message, substr) {
			result = append(result, e)
		}
	}
	return result
}

// Reset clears all captured log entries.
func (l *FakeLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = make([]LogEntry, 0)
}

// FakeMetrics captures all metrics operations for test assertions.
type FakeMetrics struct {
	mu         sync.RWMutex
	counters   map[string]*FakeCounter
	histograms map[string]*FakeHistogram
}

// NewFakeMetrics creates a new fake metrics recorder.
func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{
		counters:   make(map[string]*FakeCounter),
		histograms: make(map[string]*FakeHistogram),
	}
}

// Counter returns or creates a fake counter.
func (m *FakeMetrics) Counter(name, description, unit string) observability.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, exists := m.counters[name]; exists {
		return c
	}

	c := &FakeCounter{Name: name, Description: description, Unit: unit}
	m.counters[name] = c
	return c
}

// Histogram returns or creates a fake histogram.
func (m *FakeMetrics) Histogram(name, description, unit string) observability.Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, exists := m.histograms[name]; exists {
		return h
	}

	h := &FakeHistogram{Name: name, Description: description, Unit: unit}
	m.histograms[name] = h
	return h
}

// GetCounter returns a counter by name, or nil when it was never requested.
func (m *FakeMetrics) GetCounter(name string) *FakeCounter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[name]
}

// GetHistogram returns a histogram by name, or nil when it was never requested.
func (m *FakeMetrics) GetHistogram(name string) *FakeHistogram {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.histograms[name]
}

// CounterTotal sums every value added to the named counter.
func (m *FakeMetrics) CounterTotal(name string) int64 {
	c := m.GetCounter(name)
	if c == nil {
		return 0
	}
	var total int64
	for _, v := range c.GetValues() {
		total += v.Value
	}
	return total
}

// FakeCounter captures counter operations.
type FakeCounter struct {
	mu          sync.RWMutex
	Name        string
	Description string
	Unit        string
	values      []CounterValue
}

// CounterValue represents a captured counter value.
type CounterValue struct {
	Value     int64
	Fields    []observability.Field
	Timestamp time.Time
}

// Add captures a counter increment.
func (c *FakeCounter) Add(ctx context.Context, value int64, fields ...observability.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, CounterValue{Value: value, Fields: fields, Timestamp: time.Now()})
}

// Increment increments the counter by 1.
func (c *FakeCounter) Increment(ctx context.Context, fields ...observability.Field) {
	c.Add(ctx, 1, fields...)
}

// GetValues returns all captured values.
func (c *FakeCounter) GetValues() []CounterValue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]CounterValue, len(c.values))
	copy(result, c.values)
	return result
}

// FakeHistogram captures histogram operations.
type FakeHistogram struct {
	mu          sync.RWMutex
	Name        string
	Description string
	Unit        string
	values      []HistogramValue
}

// HistogramValue represents a captured histogram value.
type HistogramValue struct {
	Value     float64
	Fields    []observability.Field
	Timestamp time.Time
}

// Record captures a histogram value.
func (h *FakeHistogram) Record(ctx context.Context, value float64, fields ...observability.Field) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values = append(h.values, HistogramValue{Value: value, Fields: fields, Timestamp: time.Now()})
}

// GetValues returns all captured values.
func (h *FakeHistogram) GetValues() []HistogramValue {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]HistogramValue, len(h.values))
	copy(result, h.values)
	return result
}
