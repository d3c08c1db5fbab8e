package logging

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"
)

// XMLFormatter writes records as elements of a "logger.dtd" document.
type XMLFormatter struct{}

func NewXMLFormatter() *XMLFormatter { return &XMLFormatter{} }

func (f *XMLFormatter) Head(h Handler) string {
	enc := "UTF-8"
	if e, ok := h.(interface{ Encoding() string }); ok && e.Encoding() != "" {
		enc = e.Encoding()
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="`)
	b.WriteString(enc)
	b.WriteString("\" standalone=\"no\"?>\n")
	b.WriteString("<!DOCTYPE log SYSTEM \"logger.dtd\">\n")
	b.WriteString("<log>\n")
	return b.String()
}

func (f *XMLFormatter) Tail(Handler) string {
	return "</log>\n"
}

func (f *XMLFormatter) Format(r *Record) string {
	var b strings.Builder
	b.Grow(256)
	b.WriteString("<record>\n")

	t := r.Time().UTC()
	element(&b, "date", t.Format(time.RFC3339Nano))
	millis := t.UnixMilli()
	element(&b, "millis", strconv.FormatInt(millis, 10))
	if nanos := t.Nanosecond() % int(time.Millisecond); nanos != 0 {
		element(&b, "nanos", strconv.Itoa(nanos))
	}
	element(&b, "sequence", strconv.FormatInt(r.Sequence(), 10))

	if name := r.LoggerName(); name != "" {
		element(&b, "logger", name)
	}
	element(&b, "level", r.Level().Name())
	if class := r.SourceClass(); class != "" {
		element(&b, "class", class)
	}
	if method := r.SourceMethod(); method != "" {
		element(&b, "method", method)
	}
	element(&b, "thread", strconv.FormatInt(r.GoroutineID(), 10))
	element(&b, "message", FormatMessage(r))

	if err := r.Err(); err != nil {
		b.WriteString("  <exception>\n")
		b.WriteString("    <message>")
		escape(&b, err.Error())
		b.WriteString("</message>\n")
		b.WriteString("  </exception>\n")
	}

	b.WriteString("</record>\n")
	return b.String()
}

func element(b *strings.Builder, name, text string) {
	b.WriteString("  <")
	b.WriteString(name)
	b.WriteByte('>')
	escape(b, text)
	b.WriteString("</")
	b.WriteString(name)
	b.WriteString(">\n")
}

func escape(b *strings.Builder, s string) {
	_ = xml.EscapeText(b, []byte(s))
}
