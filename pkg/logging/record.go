package logging

import (
	"reflect"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var globalSequence atomic.Int64

// Record is one log event. It is not modified after construction, except for
// the call site, which is resolved on first access when the record carries
// captured program counters.
type Record struct {
	level      *Level
	message    string
	params     []any
	err        error
	loggerName string
	sequence   int64
	time       time.Time
	goroutine  int64

	pcs          []uintptr
	sourceOnce   sync.Once
	sourceClass  string
	sourceMethod string
}

// RecordOption sets optional record fields.
type RecordOption func(*Record)

// WithParams attaches message parameters.
func WithParams(params ...any) RecordOption {
	return func(r *Record) {
		r.params = params
	}
}

// WithError attaches the error being reported.
func WithError(err error) RecordOption {
	return func(r *Record) {
		r.err = err
	}
}

// WithLoggerName sets the source logger name.
func WithLoggerName(name string) RecordOption {
	return func(r *Record) {
		r.loggerName = name
	}
}

// WithSource sets the call site explicitly. It disables inference.
func WithSource(class, method string) RecordOption {
	return func(r *Record) {
		r.sourceClass = class
		r.sourceMethod = method
		r.pcs = nil
		r.sourceOnce.Do(func() {})
	}
}

// WithTime overrides the event time.
func WithTime(t time.Time) RecordOption {
	return func(r *Record) {
		r.time = t
	}
}

// WithGoroutineID overrides the captured goroutine id.
func WithGoroutineID(id int64) RecordOption {
	return func(r *Record) {
		r.goroutine = id
	}
}

func withCallers(pcs []uintptr) RecordOption {
	return func(r *Record) {
		if len(pcs) > 0 {
			r.pcs = pcs
		}
	}
}

// NewRecord creates a record with the next sequence number, the current time
// and the calling goroutine's id.
func NewRecord(level *Level, msg string, opts ...RecordOption) *Record {
	if level == nil {
		level = Info
	}
	r := &Record{
		level:     level,
		message:   msg,
		sequence:  globalSequence.Add(1) - 1,
		time:      time.Now(),
		goroutine: currentGoroutineID(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Record) Level() *Level { return r.level }
func (r *Record) Message() string { return r.message }
func (r *Record) Params() []any { return r.params }
func (r *Record) Err() error { return r.err }
func (r *Record) LoggerName() string { return r.loggerName }
func (r *Record) Sequence() int64 { return r.sequence }
func (r *Record) Time() time.Time { return r.time }
func (r *Record) GoroutineID() int64 { return r.goroutine }

// SourceClass returns the calling type or package, inferring it if needed.
func (r *Record) SourceClass() string {
	r.resolveSource()
	return r.sourceClass
}

// SourceMethod returns the calling function or method, inferring it if needed.
func (r *Record) SourceMethod() string {
	r.resolveSource()
	return r.sourceMethod
}

func (r *Record) resolveSource() {
	r.sourceOnce.Do(func() {
		if len(r.pcs) == 0 {
			return
		}
		frames := runtime.CallersFrames(r.pcs)
		for {
			frame, more := frames.Next()
			if frame.Function != "" && !isInternalFrame(frame) {
				r.sourceClass, r.sourceMethod = splitFunctionName(frame.Function)
				return
			}
			if !more {
				return
			}
		}
	})
}

var packagePath = reflect.TypeOf(Record{}).PkgPath()

// isInternalFrame skips the logger plumbing but not the package's own tests.
func isInternalFrame(frame runtime.Frame) bool {
	if strings.HasSuffix(frame.File, "_test.go") {
		return false
	}
	return strings.HasPrefix(frame.Function, packagePath+".")
}

// splitFunctionName turns "example.com/app/svc.(*Server).Handle" into
// ("example.com/app/svc.(*Server)", "Handle") and "example.com/app/svc.run.func1"
// into ("example.com/app/svc", "run.func1").
func splitFunctionName(fn string) (class, method string) {
	slash := strings.LastIndexByte(fn, '/')
	dot := strings.IndexByte(fn[slash+1:], '.')
	if dot < 0 {
		return fn, ""
	}
	dot += slash + 1
	pkg, symbol := fn[:dot], fn[dot+1:]

	if strings.HasPrefix(symbol, "(") {
		if end := strings.Index(symbol, ")."); end > 0 {
			return pkg + "." + symbol[:end+1], symbol[end+2:]
		}
	}
	return pkg, symbol
}
