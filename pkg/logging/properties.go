package logging

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
	"gopkg.in/yaml.v3"
)

// parseProperties reads key=value configuration. Values are taken literally:
// ${...} is not expanded.
func parseProperties(r io.Reader) (map[string]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	loader := properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	return p.Map(), nil
}

// parseYAML flattens a YAML document into the properties key space: nested
// mappings join their keys with dots and sequences become comma lists.
func parseYAML(r io.Reader) (map[string]string, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	out := make(map[string]string)
	flatten(out, "", doc)
	return out, nil
}

func flatten(out map[string]string, prefix string, v any) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}

	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			flatten(out, join(k), child)
		}
	case map[any]any:
		for k, child := range val {
			flatten(out, join(fmt.Sprint(k)), child)
		}
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(val)
	}
}

// Property returns the raw configuration value for key.
func (m *Manager) Property(key string) (string, bool) {
	m.propsMu.RLock()
	defer m.propsMu.RUnlock()
	v, ok := m.props[key]
	return v, ok
}

// PropertyNames lists the configuration keys, sorted.
func (m *Manager) PropertyNames() []string {
	m.propsMu.RLock()
	defer m.propsMu.RUnlock()
	keys := make([]string, 0, len(m.props))
	for k := range m.props {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (m *Manager) hasProperty(key string) bool {
	_, ok := m.Property(key)
	return ok
}

func (m *Manager) trimmedProperty(key string) (string, bool) {
	v, ok := m.Property(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// ListProperty splits a value on commas and whitespace.
func (m *Manager) ListProperty(key string) []string {
	v, ok := m.Property(key)
	if !ok {
		return nil
	}
	return splitList(v)
}

func splitList(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// StringProperty returns the trimmed value of key, or def when unset.
func (m *Manager) StringProperty(key, def string) string {
	if v, ok := m.trimmedProperty(key); ok {
		return v
	}
	return def
}

// IntProperty returns key as an int, or def when unset or invalid.
func (m *Manager) IntProperty(key string, def int) int {
	v, ok := m.trimmedProperty(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		m.warnConfig(key, &ConfigError{Key: key, Message: "not an integer", Err: err})
		return def
	}
	return n
}

// Int64Property returns key as an int64, or def when unset or invalid.
func (m *Manager) Int64Property(key string, def int64) int64 {
	v, ok := m.trimmedProperty(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		m.warnConfig(key, &ConfigError{Key: key, Message: "not an integer", Err: err})
		return def
	}
	return n
}

// BoolProperty accepts true/false and 1/0, case-insensitively.
func (m *Manager) BoolProperty(key string, def bool) bool {
	if v, ok := m.boolPropertyValue(key); ok {
		return v
	}
	return def
}

func (m *Manager) boolPropertyValue(key string) (bool, bool) {
	v, ok := m.trimmedProperty(key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(v) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	m.warnConfig(key, &ConfigError{Key: key, Message: fmt.Sprintf("invalid boolean %q", v)})
	return false, false
}

// LevelProperty parses key as a level name or value, or returns def.
func (m *Manager) LevelProperty(key string, def *Level) *Level {
	if l := m.levelPropertyValue(key); l != nil {
		return l
	}
	return def
}

func (m *Manager) levelPropertyValue(key string) *Level {
	v, ok := m.trimmedProperty(key)
	if !ok {
		return nil
	}
	l, err := ParseLevel(v)
	if err != nil {
		m.warnConfig(key, &ConfigError{Key: key, Message: "invalid level", Err: err})
		return nil
	}
	return l
}

// FilterProperty builds the filter registered under the name held by key.
func (m *Manager) FilterProperty(key string, def Filter) Filter {
	name, ok := m.trimmedProperty(key)
	if !ok {
		return def
	}
	f, err := m.newFilter(name)
	if err != nil {
		m.warnConfig(key, err)
		return def
	}
	return f
}

// FormatterProperty builds the formatter registered under the name held by key.
func (m *Manager) FormatterProperty(key string, def Formatter) Formatter {
	name, ok := m.trimmedProperty(key)
	if !ok {
		return def
	}
	f, err := m.newFormatter(name)
	if err != nil {
		m.warnConfig(key, err)
		return def
	}
	return f
}
