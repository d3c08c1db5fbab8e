package logging

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// HandlerFactory builds a handler from configuration. name is the key prefix
// of the handler's properties, e.g. "FileHandler" for "FileHandler.limit".
type HandlerFactory func(m *Manager, name string) (Handler, error)

// FormatterFactory builds a formatter from the properties under name.
type FormatterFactory func(m *Manager, name string) (Formatter, error)

// FilterFactory builds a filter from the properties under name.
type FilterFactory func(m *Manager, name string) (Filter, error)

// RegisterHandlerFactory makes name usable in ".handlers" properties.
func (m *Manager) RegisterHandlerFactory(name string, f HandlerFactory) {
	m.factoryMu.Lock()
	defer m.factoryMu.Unlock()
	m.handlerFactories[name] = f
}

// RegisterFormatterFactory makes name usable in ".formatter" properties.
func (m *Manager) RegisterFormatterFactory(name string, f FormatterFactory) {
	m.factoryMu.Lock()
	defer m.factoryMu.Unlock()
	m.formatterFactories[name] = f
}

// RegisterFilterFactory makes name usable in ".filter" properties.
func (m *Manager) RegisterFilterFactory(name string, f FilterFactory) {
	m.factoryMu.Lock()
	defer m.factoryMu.Unlock()
	m.filterFactories[name] = f
}

func (m *Manager) newHandler(name string) (Handler, error) {
	m.factoryMu.RLock()
	f, ok := m.handlerFactories[name]
	m.factoryMu.RUnlock()
	if !ok {
		return nil, &ConfigError{Key: name, Message: "unknown handler"}
	}
	h, err := f(m, name)
	if err != nil {
		return nil, &ConfigError{Key: name, Message: "cannot create handler", Err: err}
	}
	return h, nil
}

func (m *Manager) newFormatter(name string) (Formatter, error) {
	m.factoryMu.RLock()
	f, ok := m.formatterFactories[name]
	m.factoryMu.RUnlock()
	if !ok {
		return nil, &ConfigError{Key: name, Message: "unknown formatter"}
	}
	return f(m, name)
}

func (m *Manager) newFilter(name string) (Filter, error) {
	m.factoryMu.RLock()
	f, ok := m.filterFactories[name]
	m.factoryMu.RUnlock()
	if !ok {
		return nil, &ConfigError{Key: name, Message: "unknown filter"}
	}
	return f(m, name)
}

// HandlerOptions reads the settings every handler understands:
// <name>.level, .filter, .formatter and .encoding. Handlers report failures
// to WithErrorOutput and count them in the manager's metrics.
func (m *Manager) HandlerOptions(name string) []HandlerOption {
	opts := []HandlerOption{
		WithErrorManager(NewCountingErrorManager(NewErrorManager(m.errOut), m.metrics)),
		WithMetrics(m.metrics),
	}
	if l := m.levelPropertyValue(name + ".level"); l != nil {
		opts = append(opts, WithLevel(l))
	}
	if f := m.FilterProperty(name+".filter", nil); f != nil {
		opts = append(opts, WithFilter(f))
	}
	if f := m.FormatterProperty(name+".formatter", nil); f != nil {
		opts = append(opts, WithFormatter(f))
	}
	if enc, ok := m.trimmedProperty(name + ".encoding"); ok {
		if _, err := lookupEncoding(enc); err != nil {
			m.warnConfig(name+".encoding", err)
		} else {
			opts = append(opts, WithEncoding(enc))
		}
	}
	return opts
}

func (m *Manager) registerBuiltins() {
	m.handlerFactories = map[string]HandlerFactory{
		"ConsoleHandler": consoleHandlerFactory,
		"StreamHandler":  streamHandlerFactory,
		"FileHandler":    fileHandlerFactory,
		"SocketHandler":  socketHandlerFactory,
		"MemoryHandler":  memoryHandlerFactory,
	}
	m.formatterFactories = map[string]FormatterFactory{
		"SimpleFormatter": simpleFormatterFactory,
		"XMLFormatter":    xmlFormatterFactory,
	}
	m.filterFactories = map[string]FilterFactory{
		"LevelFilter": levelFilterFactory,
	}
}

func consoleHandlerFactory(m *Manager, name string) (Handler, error) {
	return NewConsoleHandler(m.HandlerOptions(name)...), nil
}

func streamHandlerFactory(m *Manager, name string) (Handler, error) {
	return NewStreamHandler(os.Stdout, m.HandlerOptions(name)...), nil
}

// fileHandlerFactory clamps out-of-range numbers to their minimum instead of
// failing.
func fileHandlerFactory(m *Manager, name string) (Handler, error) {
	def := DefaultFileConfig()
	cfg := FileConfig{
		Pattern:    m.StringProperty(name+".pattern", def.Pattern),
		Limit:      max(m.Int64Property(name+".limit", def.Limit), 0),
		Count:      max(m.IntProperty(name+".count", def.Count), 1),
		Append:     m.BoolProperty(name+".append", def.Append),
		MaxLocks:   m.IntProperty(name+".maxLocks", def.MaxLocks),
		Restricted: m.restricted,
	}
	if cfg.MaxLocks < 1 {
		cfg.MaxLocks = def.MaxLocks
	}
	return NewFileHandler(cfg, m.HandlerOptions(name)...)
}

func socketHandlerFactory(m *Manager, name string) (Handler, error) {
	def := DefaultSocketConfig()
	cfg := SocketConfig{
		Host:           m.StringProperty(name+".host", ""),
		Port:           m.IntProperty(name+".port", 0),
		ConnectRetries: max(m.IntProperty(name+".connectRetries", def.ConnectRetries), 0),
		DialTimeout:    time.Duration(m.Int64Property(name+".dialTimeoutMillis", def.DialTimeout.Milliseconds())) * time.Millisecond,
		RetryInterval:  def.RetryInterval,
	}
	return NewSocketHandler(cfg, m.HandlerOptions(name)...)
}

// memoryHandlerFactory builds the handler named by <name>.target first.
func memoryHandlerFactory(m *Manager, name string) (Handler, error) {
	targetName, ok := m.trimmedProperty(name + ".target")
	if !ok {
		return nil, fmt.Errorf("%s.target is not set", name)
	}
	if targetName == name {
		return nil, fmt.Errorf("%s cannot target itself", name)
	}
	target, err := m.newHandler(targetName)
	if err != nil {
		return nil, err
	}

	def := DefaultMemoryConfig()
	cfg := MemoryConfig{
		Size:      m.IntProperty(name+".size", def.Size),
		PushLevel: m.LevelProperty(name+".push", def.PushLevel),
	}
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	h, err := NewMemoryHandler(target, cfg, m.HandlerOptions(name)...)
	if err != nil {
		_ = target.Close()
		return nil, err
	}
	return h, nil
}

// simpleFormatterFactory keeps the format untrimmed: trailing newlines matter.
func simpleFormatterFactory(m *Manager, name string) (Formatter, error) {
	format, ok := m.Property(name + ".format")
	if !ok || strings.TrimSpace(format) == "" {
		format = DefaultSimpleFormat
	}
	return NewSimpleFormatter(
		WithFormat(format),
		WithTimeLayout(m.StringProperty(name+".timeFormat", DefaultSimpleTimeLayout)),
	), nil
}

func xmlFormatterFactory(*Manager, string) (Formatter, error) {
	return NewXMLFormatter(), nil
}

func levelFilterFactory(m *Manager, name string) (Filter, error) {
	return NewLevelFilter(m.LevelProperty(name+".level", All)), nil
}
