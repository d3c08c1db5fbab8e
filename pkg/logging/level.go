package logging

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// Level is a named severity. Levels are canonical: parsing a registered name
// or value returns the same *Level. Two levels are equal when their values are.
type Level struct {
	name  string
	value int32
}

var (
	levelMu       sync.RWMutex
	levelsByName  = make(map[string]*Level)
	levelsByValue = make(map[int32]*Level)
)

var (
	Off     = NewLevel("OFF", math.MaxInt32)
	Severe  = NewLevel("SEVERE", 1000)
	Warning = NewLevel("WARNING", 900)
	Info    = NewLevel("INFO", 800)
	Config  = NewLevel("CONFIG", 700)
	Fine    = NewLevel("FINE", 500)
	Finer   = NewLevel("FINER", 400)
	Finest  = NewLevel("FINEST", 300)
	All     = NewLevel("ALL", math.MinInt32)
)

// StandardLevels lists the built-in levels from most to least severe.
func StandardLevels() []*Level {
	return []*Level{Off, Severe, Warning, Info, Config, Fine, Finer, Finest, All}
}

// NewLevel registers a level. Registering an existing name and value pair
// returns the registered instance. When several levels share a value, parsing
// that value yields the first one registered.
func NewLevel(name string, value int32) *Level {
	levelMu.Lock()
	defer levelMu.Unlock()

	if l, ok := levelsByName[name]; ok && l.value == value {
		return l
	}

	l := &Level{name: name, value: value}
	if _, ok := levelsByName[name]; !ok {
		levelsByName[name] = l
	}
	if _, ok := levelsByValue[value]; !ok {
		levelsByValue[value] = l
	}
	return l
}

// ParseLevel resolves a level name ("INFO", case-insensitive as a fallback)
// or an integer value. An unregistered integer registers a new level named
// after the number.
func ParseLevel(s string) (*Level, error) {
	l, err := LookupLevel(s)
	if err == nil || !errors.Is(err, errUnregisteredValue) {
		return l, err
	}
	s = strings.TrimSpace(s)
	v, _ := strconv.ParseInt(s, 10, 32)
	return NewLevel(s, int32(v)), nil
}

var errUnregisteredValue = fmt.Errorf("%w: no level registered with that value", ErrUnknownLevel)

// LookupLevel is ParseLevel restricted to registered levels: an integer
// only resolves when a level with that value exists.
func LookupLevel(s string) (*Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownLevel)
	}

	levelMu.RLock()
	l, ok := levelsByName[s]
	if !ok {
		l, ok = levelsByName[strings.ToUpper(s)]
	}
	levelMu.RUnlock()
	if ok {
		return l, nil
	}

	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}

	levelMu.RLock()
	l, ok = levelsByValue[int32(v)]
	levelMu.RUnlock()
	if ok {
		return l, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnregisteredValue, s)
}

// Name returns the level name.
func (l *Level) Name() string { return l.name }

// Value returns the numeric severity.
func (l *Level) Value() int32 { return l.value }

func (l *Level) String() string {
	if l == nil {
		return ""
	}
	return l.name
}

// Equal reports whether both levels have the same value.
func (l *Level) Equal(o *Level) bool {
	if l == nil || o == nil {
		return l == o
	}
	return l.value == o.value
}
