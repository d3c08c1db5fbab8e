package logging

import (
	"strconv"
	"strings"
)

const (
	DefaultSimpleFormat     = "{date} {source}\n{level}: {message}{thrown}\n"
	DefaultSimpleTimeLayout = "Jan 02, 2006 3:04:05 PM"
)

var defaultSimpleFormatter = NewSimpleFormatter()

// SimpleFormatter renders records from a token template. Tokens:
//
//	{date} {source} {logger} {level} {message} {thrown} {sequence} {goroutine}
//
// {source} is "class method" when the call site is known and the logger
// name otherwise. {thrown} is empty, or a newline followed by the error.
type SimpleFormatter struct {
	format     string
	timeLayout string
}

// SimpleFormatterOption configures a SimpleFormatter.
type SimpleFormatterOption func(*SimpleFormatter)

func WithFormat(format string) SimpleFormatterOption {
	return func(f *SimpleFormatter) {
		if format != "" {
			f.format = format
		}
	}
}

// WithTimeLayout sets the Go time layout used for {date}.
func WithTimeLayout(layout string) SimpleFormatterOption {
	return func(f *SimpleFormatter) {
		if layout != "" {
			f.timeLayout = layout
		}
	}
}

func NewSimpleFormatter(opts ...SimpleFormatterOption) *SimpleFormatter {
	f := &SimpleFormatter{format: DefaultSimpleFormat, timeLayout: DefaultSimpleTimeLayout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *SimpleFormatter) Format(r *Record) string {
	var b strings.Builder
	s := f.format
	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			b.WriteString(s)
			break
		}
		end := strings.IndexByte(s[open:], '}')
		if end < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:open])
		token := s[open+1 : open+end]
		if !f.writeToken(&b, token, r) {
			b.WriteString(s[open : open+end+1])
		}
		s = s[open+end+1:]
	}
	return b.String()
}

func (f *SimpleFormatter) writeToken(b *strings.Builder, token string, r *Record) bool {
	switch token {
	case "date":
		b.WriteString(r.Time().Format(f.timeLayout))
	case "source":
		b.WriteString(source(r))
	case "logger":
		b.WriteString(r.LoggerName())
	case "level":
		b.WriteString(r.Level().Name())
	case "message":
		b.WriteString(FormatMessage(r))
	case "thrown":
		if err := r.Err(); err != nil {
			b.WriteByte('\n')
			b.WriteString(err.Error())
		}
	case "sequence":
		b.WriteString(strconv.FormatInt(r.Sequence(), 10))
	case "goroutine":
		b.WriteString(strconv.FormatInt(r.GoroutineID(), 10))
	default:
		return false
	}
	return true
}

func source(r *Record) string {
	class := r.SourceClass()
	if class == "" {
		return r.LoggerName()
	}
	if method := r.SourceMethod(); method != "" {
		return class + " " + method
	}
	return class
}

func (f *SimpleFormatter) Head(Handler) string { return "" }
func (f *SimpleFormatter) Tail(Handler) string { return "" }
