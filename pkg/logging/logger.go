package logging

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/JailtonJunior94/logkit/pkg/observability"
)

const maxCallerDepth = 32

// Logger is a named node of the logging hierarchy. Handler and filter
// changes are serialised per logger; parent links and effective levels are
// guarded by the owning manager's tree lock. The manager does not keep
// loggers alive: hold on to the *Logger for as long as its configuration
// matters.
type Logger struct {
	name      string
	manager   *Manager
	anonymous bool

	mu                sync.Mutex
	handlers          atomic.Pointer[[]Handler]
	filter            atomic.Pointer[filterBox]
	useParentHandlers atomic.Bool

	levelObject atomic.Pointer[Level]
	levelValue  atomic.Int32
	parent      atomic.Pointer[Logger]

	// guarded by manager.treeMu
	kids   []*loggerRef
	kidRef *loggerRef

	ref *loggerRef
}

func newLogger(name string, m *Manager) *Logger {
	l := &Logger{name: name, manager: m}
	l.useParentHandlers.Store(true)
	l.levelValue.Store(Info.Value())
	return l
}

// Name returns the dotted logger name; "" for the root logger.
func (l *Logger) Name() string { return l.name }

// Manager returns the manager the logger belongs to.
func (l *Logger) Manager() *Manager { return l.manager }

// Level returns the explicit level, nil when it is inherited.
func (l *Logger) Level() *Level { return l.levelObject.Load() }

// EffectiveLevel returns the value used for level checks.
func (l *Logger) EffectiveLevel() int32 { return l.levelValue.Load() }

// SetLevel sets the explicit level and propagates the new effective level to
// children that inherit it. nil makes the logger inherit from its parent.
func (l *Logger) SetLevel(level *Level) {
	l.manager.treeMu.Lock()
	defer l.manager.treeMu.Unlock()

	l.levelObject.Store(level)
	l.updateEffectiveLevelLocked()
}

// updateEffectiveLevelLocked recomputes the effective level and recurses into
// live children. Caller holds manager.treeMu.
func (l *Logger) updateEffectiveLevelLocked() {
	v := Info.Value()
	if lvl := l.levelObject.Load(); lvl != nil {
		v = lvl.Value()
	} else if p := l.parent.Load(); p != nil {
		v = p.levelValue.Load()
	}

	if l.levelValue.Load() == v {
		return
	}
	l.levelValue.Store(v)

	for _, kid := range l.liveKidsLocked() {
		kid.updateEffectiveLevelLocked()
	}
}

// liveKidsLocked returns the children still alive and drops collected entries.
func (l *Logger) liveKidsLocked() []*Logger {
	live := make([]*Logger, 0, len(l.kids))
	kept := l.kids[:0]
	for _, ref := range l.kids {
		if kid := ref.value(); kid != nil {
			live = append(live, kid)
			kept = append(kept, ref)
		}
	}
	clear(l.kids[len(kept):])
	l.kids = kept
	return live
}

func (l *Logger) removeKidLocked(ref *loggerRef) {
	l.kids = slices.DeleteFunc(l.kids, func(r *loggerRef) bool { return r == ref })
}

// IsLoggable reports whether a record at level would pass the level check.
func (l *Logger) IsLoggable(level *Level) bool {
	eff := l.levelValue.Load()
	return level != nil && level.Value() >= eff && eff != Off.Value()
}

// Parent returns the nearest live ancestor, nil for the root.
func (l *Logger) Parent() *Logger { return l.parent.Load() }

// SetParent re-parents the logger. The manager calls it when the tree
// changes; applications rarely need it.
func (l *Logger) SetParent(parent *Logger) error {
	if parent == nil {
		return fmt.Errorf("logging: nil parent for logger %q", l.name)
	}
	if parent == l {
		return fmt.Errorf("logging: logger %q cannot be its own parent", l.name)
	}

	l.manager.treeMu.Lock()
	defer l.manager.treeMu.Unlock()
	l.setParentLocked(parent)
	return nil
}

// setParentLocked moves l under parent. Caller holds manager.treeMu.
func (l *Logger) setParentLocked(parent *Logger) {
	if old := l.parent.Load(); old != nil {
		if old == parent {
			l.updateEffectiveLevelLocked()
			return
		}
		old.kids = slices.DeleteFunc(old.kids, func(r *loggerRef) bool {
			kid := r.value()
			return kid == nil || kid == l
		})
	}

	if l.kidRef == nil {
		l.kidRef = l.ref
		if l.kidRef == nil {
			l.kidRef = newLoggerRef(l)
		}
	}
	l.kidRef.parent = weak.Make(parent)

	l.parent.Store(parent)
	parent.kids = append(parent.kids, l.kidRef)
	l.updateEffectiveLevelLocked()
}

// Filter returns the logger filter, nil when none is set.
func (l *Logger) Filter() Filter {
	if box := l.filter.Load(); box != nil {
		return box.f
	}
	return nil
}

// SetFilter installs f; nil removes the filter.
func (l *Logger) SetFilter(f Filter) {
	l.filter.Store(&filterBox{f: f})
}

// UseParentHandlers reports whether records continue to the parent's handlers.
func (l *Logger) UseParentHandlers() bool { return l.useParentHandlers.Load() }

func (l *Logger) SetUseParentHandlers(use bool) { l.useParentHandlers.Store(use) }

// AddHandler appends h. Handlers run in the order they were added.
func (l *Logger) AddHandler(h Handler) {
	if h == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	next := append(slices.Clone(l.loadHandlers()), h)
	l.handlers.Store(&next)
}

// RemoveHandler detaches h and reports whether it was attached. The handler
// is not closed.
func (l *Logger) RemoveHandler(h Handler) bool {
	if h == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.loadHandlers()
	idx := slices.Index(cur, h)
	if idx < 0 {
		return false
	}
	next := slices.Delete(slices.Clone(cur), idx, idx+1)
	l.handlers.Store(&next)
	return true
}

// removeAllHandlers detaches every handler and returns them.
func (l *Logger) removeAllHandlers() []Handler {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.loadHandlers()
	l.handlers.Store(nil)
	return cur
}

// Handlers returns a copy of the attached handlers. On the root logger the
// first call installs the handlers named by the configuration.
func (l *Logger) Handlers() []Handler {
	return slices.Clone(l.dispatchHandlers())
}

func (l *Logger) loadHandlers() []Handler {
	if p := l.handlers.Load(); p != nil {
		return *p
	}
	return nil
}

func (l *Logger) dispatchHandlers() []Handler {
	if l.isRoot() {
		l.manager.ensureRootHandlers()
	}
	return l.loadHandlers()
}

func (l *Logger) isRoot() bool {
	return l.manager.root == l
}

// LogRecord runs the level check and the filter, then publishes r to this
// logger's handlers and to its ancestors' handlers until one of them does not
// use parent handlers.
func (l *Logger) LogRecord(r *Record) {
	if r == nil || !l.IsLoggable(r.Level()) {
		return
	}
	if f := l.Filter(); f != nil && !f.IsLoggable(r) {
		return
	}

	l.manager.recordDispatched(r)
	for cur := l; cur != nil; cur = cur.Parent() {
		for _, h := range cur.dispatchHandlers() {
			cur.publish(h, r)
		}
		if !cur.UseParentHandlers() {
			return
		}
	}
}

func (l *Logger) publish(h Handler, r *Record) {
	defer func() {
		if p := recover(); p != nil {
			l.manager.log.Error(context.Background(), "log handler panicked",
				observability.String("logger", l.name),
				observability.String("handler", fmt.Sprintf("%T", h)),
				observability.Any("panic", p),
			)
		}
	}()
	h.Publish(r)
}

func (l *Logger) newRecord(level *Level, msg string, opts ...RecordOption) *Record {
	opts = append(opts, WithLoggerName(l.name))
	if l.manager.callerInference {
		pcs := make([]uintptr, maxCallerDepth)
		n := runtime.Callers(2, pcs)
		opts = append(opts, withCallers(pcs[:n]))
	}
	return NewRecord(level, msg, opts...)
}

// Log logs msg at level. Params fill {N} placeholders or printf verbs.
func (l *Logger) Log(level *Level, msg string, params ...any) {
	if !l.IsLoggable(level) {
		return
	}
	l.LogRecord(l.newRecord(level, msg, WithParams(params...)))
}

// Logp logs with an explicit source class and method.
func (l *Logger) Logp(level *Level, sourceClass, sourceMethod, msg string, params ...any) {
	if !l.IsLoggable(level) {
		return
	}
	l.LogRecord(l.newRecord(level, msg, WithParams(params...), WithSource(sourceClass, sourceMethod)))
}

// LogErr logs msg together with err.
func (l *Logger) LogErr(level *Level, msg string, err error) {
	if !l.IsLoggable(level) {
		return
	}
	l.LogRecord(l.newRecord(level, msg, WithError(err)))
}

func (l *Logger) Severe(msg string, params ...any)  { l.logAt(Severe, msg, params) }
func (l *Logger) Warning(msg string, params ...any) { l.logAt(Warning, msg, params) }
func (l *Logger) Info(msg string, params ...any)    { l.logAt(Info, msg, params) }
func (l *Logger) Config(msg string, params ...any)  { l.logAt(Config, msg, params) }
func (l *Logger) Fine(msg string, params ...any)    { l.logAt(Fine, msg, params) }
func (l *Logger) Finer(msg string, params ...any)   { l.logAt(Finer, msg, params) }
func (l *Logger) Finest(msg string, params ...any)  { l.logAt(Finest, msg, params) }

func (l *Logger) logAt(level *Level, msg string, params []any) {
	if !l.IsLoggable(level) {
		return
	}
	l.LogRecord(l.newRecord(level, msg, WithParams(params...)))
}

// Entering logs method entry at FINER as "ENTRY", followed by one
// placeholder per parameter.
func (l *Logger) Entering(sourceClass, sourceMethod string, params ...any) {
	if !l.IsLoggable(Finer) {
		return
	}
	msg := "ENTRY"
	if len(params) > 0 {
		var b strings.Builder
		b.WriteString(msg)
		for i := range params {
			fmt.Fprintf(&b, " {%d}", i)
		}
		msg = b.String()
	}
	l.LogRecord(l.newRecord(Finer, msg, WithParams(params...), WithSource(sourceClass, sourceMethod)))
}

// Exiting logs method return at FINER as "RETURN", or "RETURN {0}" with a result.
func (l *Logger) Exiting(sourceClass, sourceMethod string, result ...any) {
	if !l.IsLoggable(Finer) {
		return
	}
	msg := "RETURN"
	var opts []RecordOption
	if len(result) > 0 {
		msg = "RETURN {0}"
		opts = append(opts, WithParams(result[0]))
	}
	opts = append(opts, WithSource(sourceClass, sourceMethod))
	l.LogRecord(l.newRecord(Finer, msg, opts...))
}

// Throwing logs at FINER that the method is returning err.
func (l *Logger) Throwing(sourceClass, sourceMethod string, err error) {
	if !l.IsLoggable(Finer) {
		return
	}
	l.LogRecord(l.newRecord(Finer, "THROW", WithError(err), WithSource(sourceClass, sourceMethod)))
}
