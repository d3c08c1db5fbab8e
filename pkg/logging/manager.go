package logging

import (
	"context"
	"io"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/JailtonJunior94/logkit/pkg/observability/noop"
)

// GlobalLoggerName is the name of the logger seeded next to the root.
const GlobalLoggerName = "global"

const (
	rootUninitialized int32 = iota
	rootInitializing
	rootInitialized
)

// Manager owns a logger namespace and the configuration applied to it. The
// name registry holds weak references only; loggers nobody references are
// purged in bounded batches on later registrations.
type Manager struct {
	mu      sync.Mutex // name map, tree nodes, pinned loggers, listeners
	treeMu  sync.Mutex // parent links, child lists, effective levels
	tree    *logNode
	loggers map[string]*loggerRef
	pinned  map[string]*Logger

	staleMu sync.Mutex
	stale   []*loggerRef

	root   *Logger
	global *Logger

	rootState     atomic.Int32
	rootInitMu    sync.Mutex
	rootInitOwner atomic.Int64

	propsMu sync.RWMutex
	props   map[string]string

	listenerSeq uint64
	listeners   map[uint64]func()

	factoryMu          sync.RWMutex
	handlerFactories   map[string]HandlerFactory
	formatterFactories map[string]FormatterFactory
	filterFactories    map[string]FilterFactory

	log             observability.Logger
	metrics         observability.Metrics
	dispatched      observability.Counter
	reloads         observability.Counter
	errOut          io.Writer
	callerInference bool
	restricted      bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithObservability routes the manager's diagnostics and metrics through o.
func WithObservability(o observability.Observability) Option {
	return func(m *Manager) {
		m.log = o.Logger()
		m.metrics = o.Metrics()
	}
}

// WithCallerInference captures call stacks so records can report their
// source function. Off by default.
func WithCallerInference(enabled bool) Option {
	return func(m *Manager) { m.callerInference = enabled }
}

// WithErrorOutput sets where configured handlers print their first failure.
func WithErrorOutput(w io.Writer) Option {
	return func(m *Manager) { m.errOut = w }
}

// WithRestricted refuses %h in file patterns of configured handlers.
func WithRestricted(restricted bool) Option {
	return func(m *Manager) { m.restricted = restricted }
}

// NewManager creates a namespace holding the root logger (level INFO) and
// the global logger.
func NewManager(opts ...Option) *Manager {
	nop := noop.NewProvider()
	m := &Manager{
		tree:      &logNode{},
		loggers:   make(map[string]*loggerRef),
		pinned:    make(map[string]*Logger),
		props:     make(map[string]string),
		listeners: make(map[uint64]func()),
		log:       nop.Logger(),
		metrics:   nop.Metrics(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.dispatched = m.metrics.Counter("logkit_records_dispatched_total", "Records accepted by loggers", "1")
	m.reloads = m.metrics.Counter("logkit_config_reloads_total", "Configuration reads and updates", "1")
	m.registerBuiltins()
	m.rootState.Store(rootInitialized)

	m.root = newLogger("", m)
	m.root.SetLevel(Info)
	m.AddLogger(m.root)

	m.global = newLogger(GlobalLoggerName, m)
	m.AddLogger(m.global)
	return m
}

// Root returns the root logger.
func (m *Manager) Root() *Logger { return m.root }

// Global returns the logger named "global".
func (m *Manager) Global() *Logger { return m.global }

// NewLogger returns an unregistered logger bound to m, for use with AddLogger.
func (m *Manager) NewLogger(name string) *Logger {
	return newLogger(name, m)
}

// AnonymousLogger returns a logger that is never registered. Its parent is
// the root logger.
func (m *Manager) AnonymousLogger() *Logger {
	l := newLogger("", m)
	l.anonymous = true
	_ = l.SetParent(m.root)
	return l
}

// Logger returns the logger registered under name, creating and registering
// it when missing.
func (m *Manager) Logger(name string) *Logger {
	for {
		if l := m.GetLogger(name); l != nil {
			return l
		}
		l := newLogger(name, m)
		if m.AddLogger(l) {
			return l
		}
	}
}

// GetLogger looks name up without creating it.
func (m *Manager) GetLogger(name string) *Logger {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, ok := m.loggers[name]
	if !ok {
		return nil
	}
	l := ref.value()
	if l == nil {
		m.disposeLocked(ref)
	}
	return l
}

// AddLogger registers l under its name. It returns false when a live logger
// with that name is already registered or l belongs to another manager.
func (m *Manager) AddLogger(l *Logger) bool {
	if l == nil || l.anonymous || l.manager != m {
		return false
	}

	m.mu.Lock()
	m.drainStaleLocked(staleSweepLimit)

	if ref, ok := m.loggers[l.name]; ok {
		if ref.value() != nil {
			m.mu.Unlock()
			return false
		}
		m.disposeLocked(ref)
	}

	ref := newLoggerRef(l)
	l.ref = ref
	m.loggers[l.name] = ref
	runtime.AddCleanup(l, m.enqueueStale, ref)

	if lvl := m.levelPropertyValue(l.name + ".level"); lvl != nil {
		l.SetLevel(lvl)
	}

	node := m.nodeLocked(l.name)
	node.ref = ref
	ref.node = node

	var parent *Logger
	for n := node.parent; n != nil; n = n.parent {
		if p := n.ref.value(); p != nil {
			parent = p
			break
		}
	}

	m.treeMu.Lock()
	if l.kidRef == nil {
		l.kidRef = ref
	}
	if parent != nil {
		l.setParentLocked(parent)
	}
	node.walkAndSetParent(l)
	m.treeMu.Unlock()
	m.mu.Unlock()

	m.processParentHandlers(l)
	if l != m.root {
		m.loadLoggerHandlers(l)
	}
	return true
}

// LoggerNames returns the names of live registered loggers, sorted.
func (m *Manager) LoggerNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.loggers))
	for name, ref := range m.loggers {
		if ref.value() != nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// processParentHandlers applies <name>.useParentHandlers and creates the
// ancestors that carry a level or handlers in the configuration, so their
// settings take effect for l.
func (m *Manager) processParentHandlers(l *Logger) {
	name := l.name
	if use, ok := m.boolPropertyValue(name + ".useParentHandlers"); ok && !use {
		l.SetUseParentHandlers(false)
	}

	for i := 1; i < len(name); {
		j := strings.IndexByte(name[i:], '.')
		if j < 0 {
			break
		}
		pname := name[:i+j]
		if m.hasProperty(pname+".level") || m.hasProperty(pname+".handlers") {
			m.Logger(pname)
		}
		i += j + 1
	}
}

// loadLoggerHandlers attaches the handlers listed in <name>.handlers and pins
// l until the next reset so the handlers are closed with it.
func (m *Manager) loadLoggerHandlers(l *Logger) {
	key := l.name + ".handlers"
	names := m.ListProperty(key)
	if len(names) == 0 {
		return
	}

	added := 0
	for _, hn := range names {
		h, err := m.newHandler(hn)
		if err != nil {
			m.warnConfig(key, err)
			continue
		}
		l.AddHandler(h)
		added++
	}

	if pin, ok := m.boolPropertyValue(key + ".ensureCloseOnReset"); added > 0 && (!ok || pin) {
		m.mu.Lock()
		m.pinned[l.name] = l
		m.mu.Unlock()
	}
}

// ensureRootHandlers installs the root handlers named by "handlers" and
// ".handlers" once per configuration read. Other goroutines wait for the
// installation; a handler constructor that logs from the installing
// goroutine sees no root handlers instead of deadlocking.
func (m *Manager) ensureRootHandlers() {
	switch m.rootState.Load() {
	case rootInitialized:
		return
	case rootInitializing:
		if m.rootInitOwner.Load() == currentGoroutineID() {
			return
		}
	}

	m.rootInitMu.Lock()
	defer m.rootInitMu.Unlock()
	if m.rootState.Load() != rootUninitialized {
		return
	}

	m.rootInitOwner.Store(currentGoroutineID())
	m.rootState.Store(rootInitializing)
	defer func() {
		m.rootState.Store(rootInitialized)
		m.rootInitOwner.Store(0)
	}()

	seen := make(map[string]bool)
	for _, key := range []string{"handlers", ".handlers"} {
		for _, hn := range m.ListProperty(key) {
			if seen[hn] {
				continue
			}
			seen[hn] = true

			h, err := m.newHandler(hn)
			if err != nil {
				m.warnConfig(key, err)
				continue
			}
			m.root.AddHandler(h)
		}
	}
}

func (m *Manager) recordDispatched(r *Record) {
	m.dispatched.Increment(context.Background(), observability.String("level", r.Level().Name()))
}

func (m *Manager) warnConfig(key string, err error) {
	m.log.Warn(context.Background(), "logging configuration entry skipped",
		observability.String("key", key),
		observability.Error(err),
	)
}
