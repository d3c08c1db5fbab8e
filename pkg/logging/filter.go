package logging

// Filter gives fine-grained control over which records are logged, on top of levels.
type Filter interface {
	IsLoggable(r *Record) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(r *Record) bool

func (f FilterFunc) IsLoggable(r *Record) bool { return f(r) }

// LevelFilter accepts records at or above a threshold.
type LevelFilter struct {
	threshold *Level
}

// NewLevelFilter returns a filter accepting records at or above threshold.
func NewLevelFilter(threshold *Level) *LevelFilter {
	if threshold == nil {
		threshold = All
	}
	return &LevelFilter{threshold: threshold}
}

func (f *LevelFilter) IsLoggable(r *Record) bool {
	return r.Level().Value() >= f.threshold.Value()
}

// Threshold returns the minimum accepted level.
func (f *LevelFilter) Threshold() *Level { return f.threshold }
