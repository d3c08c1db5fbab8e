package observability

import "context"

// Metrics provides the counters and histograms recorded by handlers and the manager.
type Metrics interface {
	// Counter returns a counter metric instrument. Implementations return the
	// same instrument for repeated calls with the same name.
	Counter(name, description, unit string) Counter

	// Histogram returns a histogram metric instrument.
	Histogram(name, description, unit string) Histogram
}

// Counter is a monotonically increasing metric.
type Counter interface {
	Add(ctx context.Context, value int64, fields ...Field)
	Increment(ctx context.Context, fields ...Field)
}

// Histogram records a distribution of values.
type Histogram interface {
	Record(ctx context.Context, value float64, fields ...Field)
}
