package logging

import (
	"sync/atomic"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/JailtonJunior94/logkit/pkg/observability/noop"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Handler receives records from loggers and exports them. Publish never
// returns an error: failures go to the handler's ErrorManager. Close is
// terminal; publishing afterwards is a no-op.
type Handler interface {
	Publish(r *Record)
	Flush()
	Close() error
}

// ConfigurableHandler is implemented by handlers built on BaseHandler.
type ConfigurableHandler interface {
	Handler
	Level() *Level
	SetLevel(l *Level)
	Filter() Filter
	SetFilter(f Filter)
	Formatter() Formatter
	SetFormatter(f Formatter)
	ErrorManager() ErrorManager
	SetErrorManager(em ErrorManager)
	Encoding() string
	IsLoggable(r *Record) bool
}

type filterBox struct{ f Filter }
type formatterBox struct{ f Formatter }
type errorManagerBox struct{ em ErrorManager }

// BaseHandler holds the settings shared by all handlers. Every field is
// swapped atomically, so a setter never tears a publish in flight.
type BaseHandler struct {
	level        atomic.Pointer[Level]
	filter       atomic.Pointer[filterBox]
	formatter    atomic.Pointer[formatterBox]
	errorManager atomic.Pointer[errorManagerBox]
	encoding     atomic.Pointer[string]
}

// Level returns the handler threshold, All when unset.
func (b *BaseHandler) Level() *Level {
	if l := b.level.Load(); l != nil {
		return l
	}
	return All
}

// SetLevel sets the threshold. A nil level is ignored.
func (b *BaseHandler) SetLevel(l *Level) {
	if l != nil {
		b.level.Store(l)
	}
}

func (b *BaseHandler) Filter() Filter {
	if box := b.filter.Load(); box != nil {
		return box.f
	}
	return nil
}

// SetFilter installs f; nil removes the filter.
func (b *BaseHandler) SetFilter(f Filter) {
	b.filter.Store(&filterBox{f: f})
}

// Formatter returns the formatter, a SimpleFormatter when unset.
func (b *BaseHandler) Formatter() Formatter {
	if box := b.formatter.Load(); box != nil && box.f != nil {
		return box.f
	}
	return defaultSimpleFormatter
}

// SetFormatter installs f. A nil formatter is ignored.
func (b *BaseHandler) SetFormatter(f Formatter) {
	if f != nil {
		b.formatter.Store(&formatterBox{f: f})
	}
}

func (b *BaseHandler) ErrorManager() ErrorManager {
	if box := b.errorManager.Load(); box != nil {
		return box.em
	}
	em := &errorManagerBox{em: NewErrorManager(nil)}
	if b.errorManager.CompareAndSwap(nil, em) {
		return em.em
	}
	return b.errorManager.Load().em
}

// SetErrorManager installs em. A nil manager is ignored.
func (b *BaseHandler) SetErrorManager(em ErrorManager) {
	if em != nil {
		b.errorManager.Store(&errorManagerBox{em: em})
	}
}

// Encoding returns the configured charset name, "" meaning UTF-8.
func (b *BaseHandler) Encoding() string {
	if e := b.encoding.Load(); e != nil {
		return *e
	}
	return ""
}

func (b *BaseHandler) setEncodingName(name string) {
	b.encoding.Store(&name)
}

// IsLoggable checks the record against the level and the filter.
func (b *BaseHandler) IsLoggable(r *Record) bool {
	if r == nil {
		return false
	}
	lvl := b.Level()
	if r.Level().Value() < lvl.Value() || lvl.Value() == Off.Value() {
		return false
	}
	if f := b.Filter(); f != nil {
		return f.IsLoggable(r)
	}
	return true
}

// ReportError sends a failure to the error manager, swallowing panics from it.
func (b *BaseHandler) ReportError(msg string, err error, kind ErrorKind) {
	defer func() { _ = recover() }()
	b.ErrorManager().Error(msg, err, kind)
}

func (b *BaseHandler) report(failures []failure) {
	for _, f := range failures {
		b.ReportError(f.msg, f.err, f.kind)
	}
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return nil, nil
	}
	return htmlindex.Get(name)
}

// handlerSettings collects HandlerOption values before they are applied.
type handlerSettings struct {
	level        *Level
	filter       Filter
	filterSet    bool
	formatter    Formatter
	errorManager ErrorManager
	encoding     string
	metrics      observability.Metrics
}

// HandlerOption configures the common settings of a built-in handler.
type HandlerOption func(*handlerSettings)

func WithLevel(l *Level) HandlerOption {
	return func(s *handlerSettings) { s.level = l }
}

func WithFilter(f Filter) HandlerOption {
	return func(s *handlerSettings) {
		s.filter = f
		s.filterSet = true
	}
}

func WithFormatter(f Formatter) HandlerOption {
	return func(s *handlerSettings) { s.formatter = f }
}

func WithErrorManager(em ErrorManager) HandlerOption {
	return func(s *handlerSettings) { s.errorManager = em }
}

// WithEncoding selects an output charset by its WHATWG name ("ISO-8859-1", "UTF-16LE").
func WithEncoding(name string) HandlerOption {
	return func(s *handlerSettings) { s.encoding = name }
}

// WithMetrics records handler counters through m.
func WithMetrics(m observability.Metrics) HandlerOption {
	return func(s *handlerSettings) { s.metrics = m }
}

func buildSettings(level *Level, formatter Formatter, opts []HandlerOption) handlerSettings {
	s := handlerSettings{level: level, formatter: formatter}
	for _, opt := range opts {
		opt(&s)
	}
	if s.metrics == nil {
		s.metrics = noop.NewProvider().Metrics()
	}
	return s
}

// Init applies opts to b on top of the given defaults. Handlers defined
// outside this package call it from their constructors.
func (b *BaseHandler) Init(level *Level, formatter Formatter, opts ...HandlerOption) error {
	return buildSettings(level, formatter, opts).apply(b)
}

// apply copies the settings into b and validates the encoding.
func (s handlerSettings) apply(b *BaseHandler) error {
	b.SetLevel(s.level)
	if s.filterSet {
		b.SetFilter(s.filter)
	}
	b.SetFormatter(s.formatter)
	b.SetErrorManager(s.errorManager)
	if s.encoding != "" {
		if _, err := lookupEncoding(s.encoding); err != nil {
			return &HandlerError{Op: "encoding", Message: s.encoding, Err: err}
		}
		b.setEncodingName(s.encoding)
	}
	return nil
}
