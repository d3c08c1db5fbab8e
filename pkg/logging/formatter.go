package logging

import (
	"fmt"
	"strconv"
	"strings"
)

// Formatter turns a record into text. Head and Tail wrap the records written
// to one output, e.g. an XML document element.
type Formatter interface {
	Format(r *Record) string
	Head(h Handler) string
	Tail(h Handler) string
}

// FormatMessage renders the record message with its parameters. Messages
// containing "{0}" style placeholders get positional substitution; other
// messages with parameters go through fmt.Sprintf.
func FormatMessage(r *Record) string {
	msg := r.Message()
	params := r.Params()
	if len(params) == 0 {
		return msg
	}
	if hasPositional(msg) {
		return substitutePositional(msg, params)
	}
	if strings.ContainsRune(msg, '%') {
		return fmt.Sprintf(msg, params...)
	}
	return msg
}

func hasPositional(msg string) bool {
	for _, p := range []string{"{0", "{1", "{2", "{3"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func substitutePositional(msg string, params []any) string {
	var b strings.Builder
	b.Grow(len(msg))
	for i := 0; i < len(msg); i++ {
		if msg[i] != '{' {
			b.WriteByte(msg[i])
			continue
		}
		end := strings.IndexByte(msg[i:], '}')
		if end < 0 {
			b.WriteString(msg[i:])
			break
		}
		idx, err := strconv.Atoi(msg[i+1 : i+end])
		if err != nil || idx < 0 || idx >= len(params) {
			b.WriteString(msg[i : i+end+1])
		} else {
			b.WriteString(fmt.Sprint(params[idx]))
		}
		i += end
	}
	return b.String()
}
