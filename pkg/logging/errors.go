package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/JailtonJunior94/logkit/pkg/observability"
)

var (
	ErrUnknownLevel    = errors.New("logging: unknown level")
	ErrLoggerNotFound  = errors.New("logging: logger not found")
	ErrInvalidPattern  = errors.New("logging: invalid file pattern")
	ErrInvalidLimit    = errors.New("logging: file limit must not be negative")
	ErrInvalidCount    = errors.New("logging: file count must be at least 1")
	ErrInvalidMaxLocks = errors.New("logging: max locks must be at least 1")
	ErrLockUnavailable = errors.New("logging: no lock file available")
	ErrRestrictedHome  = errors.New("logging: %h is not allowed in restricted mode")
	ErrHandlerClosed   = errors.New("logging: handler closed")
)

// ErrorKind classifies a failure reported by a handler.
type ErrorKind int

const (
	GenericFailure ErrorKind = iota
	WriteFailure
	FlushFailure
	CloseFailure
	OpenFailure
	FormatFailure
)

func (k ErrorKind) String() string {
	switch k {
	case WriteFailure:
		return "write"
	case FlushFailure:
		return "flush"
	case CloseFailure:
		return "close"
	case OpenFailure:
		return "open"
	case FormatFailure:
		return "format"
	default:
		return "generic"
	}
}

// HandlerError describes a failed handler operation.
type HandlerError struct {
	Op      string
	Message string
	Err     error
}

func (e *HandlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// ConfigError describes a configuration entry that could not be applied.
type ConfigError struct {
	Key     string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %q: %s: %v", e.Key, e.Message, e.Err)
	}
	return fmt.Sprintf("config %q: %s", e.Key, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ErrorManager receives failures from the publish path. Handlers call it
// outside their own lock, so an implementation may log.
type ErrorManager interface {
	Error(msg string, err error, kind ErrorKind)
}

// ErrorManagerFunc adapts a function to ErrorManager.
type ErrorManagerFunc func(msg string, err error, kind ErrorKind)

func (f ErrorManagerFunc) Error(msg string, err error, kind ErrorKind) { f(msg, err, kind) }

type firstErrorManager struct {
	out      io.Writer
	mu       sync.Mutex
	reported bool
}

// NewErrorManager returns the default error manager: it writes the first
// failure to out (stderr when nil) and ignores every later one.
func NewErrorManager(out io.Writer) ErrorManager {
	if out == nil {
		out = os.Stderr
	}
	return &firstErrorManager{out: out}
}

func (m *firstErrorManager) Error(msg string, err error, kind ErrorKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reported {
		return
	}
	m.reported = true

	text := fmt.Sprintf("logkit.ErrorManager: %d", int(kind))
	if msg != "" {
		text += ": " + msg
	}
	if err != nil {
		text += ": " + err.Error()
	}
	_, _ = fmt.Fprintln(m.out, text)
}

type countingErrorManager struct {
	next    ErrorManager
	counter observability.Counter
}

// NewCountingErrorManager counts failures per kind in
// logkit_handler_errors_total before delegating to next.
func NewCountingErrorManager(next ErrorManager, metrics observability.Metrics) ErrorManager {
	if next == nil {
		next = NewErrorManager(nil)
	}
	return &countingErrorManager{
		next:    next,
		counter: metrics.Counter("logkit_handler_errors_total", "Failures reported by log handlers", "1"),
	}
}

func (m *countingErrorManager) Error(msg string, err error, kind ErrorKind) {
	m.counter.Increment(context.Background(), observability.String("kind", kind.String()))
	m.next.Error(msg, err, kind)
}

// failure is a report queued while a handler lock is held.
type failure struct {
	msg  string
	err  error
	kind ErrorKind
}
