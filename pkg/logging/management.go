package logging

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Management exposes a manager's loggers by name, for remote administration.
type Management struct {
	m *Manager
}

func NewManagement(m *Manager) *Management {
	return &Management{m: m}
}

// LoggerNames lists the live registered loggers.
func (mg *Management) LoggerNames() []string {
	return mg.m.LoggerNames()
}

// LoggerLevel returns the explicit level name of a logger, "" when it
// inherits. ok is false when no such logger is registered.
func (mg *Management) LoggerLevel(name string) (level string, ok bool) {
	l := mg.m.GetLogger(name)
	if l == nil {
		return "", false
	}
	if lvl := l.Level(); lvl != nil {
		return lvl.Name(), true
	}
	return "", true
}

// EffectiveLoggerLevel names the level a logger actually filters at, after
// inheritance. Values without a registered level are printed as numbers.
func (mg *Management) EffectiveLoggerLevel(name string) (string, bool) {
	l := mg.m.GetLogger(name)
	if l == nil {
		return "", false
	}
	v := l.EffectiveLevel()
	levelMu.RLock()
	lvl, ok := levelsByValue[v]
	levelMu.RUnlock()
	if ok {
		return lvl.Name(), true
	}
	return strconv.Itoa(int(v)), true
}

// SetLoggerLevel parses level and applies it; an empty level makes the
// logger inherit again.
func (mg *Management) SetLoggerLevel(name, level string) error {
	l := mg.m.GetLogger(name)
	if l == nil {
		return fmt.Errorf("%w: %q", ErrLoggerNotFound, name)
	}
	if strings.TrimSpace(level) == "" {
		if l == mg.m.Root() {
			return errors.New("logging: the root logger level cannot be cleared")
		}
		l.SetLevel(nil)
		return nil
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.SetLevel(lvl)
	return nil
}

// ParentLoggerName returns the name of the logger's parent, "" for the root
// or an unknown logger.
func (mg *Management) ParentLoggerName(name string) (string, bool) {
	l := mg.m.GetLogger(name)
	if l == nil {
		return "", false
	}
	if p := l.Parent(); p != nil {
		return p.Name(), true
	}
	return "", true
}
