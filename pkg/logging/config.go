package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/JailtonJunior94/logkit/pkg/observability"
)

// ValueMapper decides the value kept for one key during UpdateConfiguration.
// Either argument is nil when the key is absent on that side; returning nil
// removes the key.
type ValueMapper func(key string) func(oldValue, newValue *string) *string

// ReadConfiguration replaces the configuration with the properties read from
// r. It resets every logger, applies the new levels to existing loggers and
// defers root handler creation until the root logger is next used. Existing
// non-root loggers do not get their handlers back; UpdateConfiguration does
// that. The configuration is parsed before anything is reset, so a malformed
// source leaves the current setup untouched.
func (m *Manager) ReadConfiguration(r io.Reader) error {
	props, err := parseProperties(r)
	if err != nil {
		return &ConfigError{Key: "", Message: "cannot parse configuration", Err: err}
	}
	m.applyConfiguration(props)
	return nil
}

// ReadConfigurationFile reads a properties file, or a YAML file when the
// name ends in .yaml or .yml.
func (m *Manager) ReadConfigurationFile(path string) error {
	props, err := loadConfigurationFile(path)
	if err != nil {
		return err
	}
	m.applyConfiguration(props)
	return nil
}

// LoadConfigurationFile parses path without applying it.
func LoadConfigurationFile(path string) (map[string]string, error) {
	return loadConfigurationFile(path)
}

func loadConfigurationFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Key: path, Message: "cannot open configuration", Err: err}
	}
	defer f.Close()

	var props map[string]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		props, err = parseYAML(f)
	default:
		props, err = parseProperties(f)
	}
	if err != nil {
		return nil, &ConfigError{Key: path, Message: "cannot parse configuration", Err: err}
	}
	return props, nil
}

func (m *Manager) applyConfiguration(props map[string]string) {
	m.Reset()

	m.propsMu.Lock()
	m.props = props
	m.propsMu.Unlock()

	m.rootState.Store(rootUninitialized)
	m.setLevelsOnExistingLoggers()

	m.reloads.Increment(context.Background(), observability.String("mode", "read"))
	m.notifyListeners()
}

func (m *Manager) setLevelsOnExistingLoggers() {
	for _, key := range m.PropertyNames() {
		name, ok := strings.CutSuffix(key, ".level")
		if !ok {
			continue
		}
		if l := m.GetLogger(name); l != nil {
			if lvl := m.levelPropertyValue(key); lvl != nil {
				l.SetLevel(lvl)
			}
		}
	}
}

// Reset closes and detaches every handler, clears all explicit levels (the
// root goes back to INFO) and drops the configuration. Root handlers are not
// recreated until the next ReadConfiguration.
func (m *Manager) Reset() {
	m.mu.Lock()
	names := slices.Collect(maps.Keys(m.loggers))
	pinned := m.pinned
	m.pinned = make(map[string]*Logger)
	m.mu.Unlock()

	m.propsMu.Lock()
	m.props = make(map[string]string)
	m.propsMu.Unlock()

	m.rootInitMu.Lock()
	m.rootState.Store(rootInitialized)
	m.rootInitMu.Unlock()

	for _, l := range pinned {
		m.resetLogger(l)
	}
	for _, name := range names {
		if l := m.GetLogger(name); l != nil {
			m.resetLogger(l)
		}
	}
}

func (m *Manager) resetLogger(l *Logger) {
	m.closeHandlers(l)
	if l == m.root {
		l.SetLevel(Info)
	} else {
		l.SetLevel(nil)
	}
}

func (m *Manager) closeHandlers(l *Logger) {
	for _, h := range l.removeAllHandlers() {
		if err := h.Close(); err != nil {
			m.log.Warn(context.Background(), "closing log handler failed",
				observability.String("logger", l.name),
				observability.Error(err),
			)
		}
	}
}

// configChange collects the changed keys of one logger.
type configChange struct {
	level, handlers, useParent bool
}

var loggerKeySuffixes = []string{".level", ".handlers", ".useParentHandlers"}

// loggerKey splits a per-logger key into logger name and suffix. "handlers"
// is the root's handler list.
func loggerKey(key string) (string, string, bool) {
	if key == "handlers" {
		return "", ".handlers", true
	}
	for _, suffix := range loggerKeySuffixes {
		if name, ok := strings.CutSuffix(key, suffix); ok {
			return name, suffix, true
		}
	}
	return "", "", false
}

// UpdateConfiguration merges the properties read from r into the current
// configuration. For every key present on either side, mapper picks the
// resulting value; a nil mapper lets the new value win and drops keys the
// new source does not have. Loggers whose level, handlers or
// useParentHandlers changed are updated in place.
func (m *Manager) UpdateConfiguration(r io.Reader, mapper ValueMapper) error {
	incoming, err := parseProperties(r)
	if err != nil {
		return &ConfigError{Key: "", Message: "cannot parse configuration", Err: err}
	}
	m.updateConfiguration(incoming, mapper)
	return nil
}

// UpdateConfigurationFile is UpdateConfiguration over a properties or YAML file.
func (m *Manager) UpdateConfigurationFile(path string, mapper ValueMapper) error {
	incoming, err := loadConfigurationFile(path)
	if err != nil {
		return err
	}
	m.updateConfiguration(incoming, mapper)
	return nil
}

func (m *Manager) updateConfiguration(incoming map[string]string, mapper ValueMapper) {
	changes := make(map[string]*configChange)

	m.propsMu.Lock()
	keys := make(map[string]struct{}, len(m.props)+len(incoming))
	for k := range m.props {
		keys[k] = struct{}{}
	}
	for k := range incoming {
		keys[k] = struct{}{}
	}

	for key := range keys {
		var oldVal, newVal *string
		if v, ok := m.props[key]; ok {
			oldVal = &v
		}
		if v, ok := incoming[key]; ok {
			newVal = &v
		}

		result := newVal
		if mapper != nil {
			if fn := mapper(key); fn != nil {
				result = fn(oldVal, newVal)
			}
		}

		if result == nil {
			delete(m.props, key)
		} else {
			m.props[key] = *result
		}
		if equalValues(oldVal, result) {
			continue
		}

		name, suffix, ok := loggerKey(key)
		if !ok {
			continue
		}
		c := changes[name]
		if c == nil {
			c = &configChange{}
			changes[name] = c
		}
		switch suffix {
		case ".level":
			c.level = true
		case ".handlers":
			c.handlers = true
		case ".useParentHandlers":
			c.useParent = true
		}
	}
	m.propsMu.Unlock()

	names := slices.Sorted(maps.Keys(changes))
	for _, name := range names {
		m.applyLoggerChange(name, changes[name])
	}

	m.reloads.Increment(context.Background(), observability.String("mode", "update"))
	m.notifyListeners()
}

func (m *Manager) applyLoggerChange(name string, c *configChange) {
	if name == "" {
		if c.level {
			m.root.SetLevel(m.LevelProperty(".level", Info))
		}
		if c.handlers {
			m.closeHandlers(m.root)
			m.rootInitMu.Lock()
			m.rootState.Store(rootUninitialized)
			m.rootInitMu.Unlock()
		}
		if c.useParent {
			m.root.SetUseParentHandlers(m.BoolProperty(".useParentHandlers", true))
		}
		return
	}

	l := m.GetLogger(name)
	created := false
	if l == nil && c.handlers && len(m.ListProperty(name+".handlers")) > 0 {
		l, created = m.Logger(name), true
	}
	if l == nil {
		return
	}

	if c.level {
		l.SetLevel(m.levelPropertyValue(name + ".level"))
	}
	if c.handlers && !created {
		m.mu.Lock()
		delete(m.pinned, name)
		m.mu.Unlock()
		m.closeHandlers(l)
		m.loadLoggerHandlers(l)
	}
	if c.useParent {
		l.SetUseParentHandlers(m.BoolProperty(name+".useParentHandlers", true))
	}
	m.processParentHandlers(l)
}

func equalValues(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// AddConfigurationListener registers fn to run after every configuration
// read or update. The returned function unregisters it.
func (m *Manager) AddConfigurationListener(fn func()) (remove func()) {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	m.listenerSeq++
	id := m.listenerSeq
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notifyListeners() {
	m.mu.Lock()
	ids := slices.Sorted(maps.Keys(m.listeners))
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	m.mu.Unlock()

	var errs []error
	for _, fn := range fns {
		if err := callListener(fn); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		m.log.Error(context.Background(), "configuration listener panicked", observability.Error(err))
	}
}

func callListener(fn func()) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("listener panic: %v", p)
		}
	}()
	fn()
	return nil
}

// CheckProperties reports the entries of props this manager could not
// apply: unparsable levels and booleans, and handler, formatter or filter
// names with no registered factory. Nothing is instantiated or applied.
func (m *Manager) CheckProperties(props map[string]string) []error {
	var errs []error
	for _, key := range slices.Sorted(maps.Keys(props)) {
		value := strings.TrimSpace(props[key])
		switch {
		case strings.HasSuffix(key, ".level") || strings.HasSuffix(key, ".push"):
			if _, err := ParseLevel(value); err != nil {
				errs = append(errs, &ConfigError{Key: key, Message: "invalid level", Err: err})
			}
		case strings.HasSuffix(key, ".useParentHandlers") || strings.HasSuffix(key, ".ensureCloseOnReset"):
			switch strings.ToLower(value) {
			case "true", "false", "1", "0":
			default:
				errs = append(errs, &ConfigError{Key: key, Message: fmt.Sprintf("invalid boolean %q", value)})
			}
		case key == "handlers" || strings.HasSuffix(key, ".handlers") || strings.HasSuffix(key, ".target"):
			for _, name := range splitList(value) {
				if !hasKey(&m.factoryMu, m.handlerFactories, name) {
					errs = append(errs, &ConfigError{Key: key, Message: "unknown handler " + name})
				}
			}
		case strings.HasSuffix(key, ".formatter"):
			if !hasKey(&m.factoryMu, m.formatterFactories, value) {
				errs = append(errs, &ConfigError{Key: key, Message: "unknown formatter " + value})
			}
		case strings.HasSuffix(key, ".filter"):
			if !hasKey(&m.factoryMu, m.filterFactories, value) {
				errs = append(errs, &ConfigError{Key: key, Message: "unknown filter " + value})
			}
		}
	}
	return errs
}

func hasKey[V any](mu *sync.RWMutex, factories map[string]V, name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := factories[name]
	return ok
}
