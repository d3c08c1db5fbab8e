package logging

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatMessage(t *testing.T) {
	scenarios := []struct {
		name   string
		msg    string
		params []any
		want   string
	}{
		{name: "no params", msg: "plain {0}", want: "plain {0}"},
		{name: "positional", msg: "{1} then {0}", params: []any{"a", "b"}, want: "b then a"},
		{name: "out of range index kept", msg: "{0} {5}", params: []any{1}, want: "1 {5}"},
		{name: "printf verbs", msg: "%d items in %s", params: []any{3, "cart"}, want: "3 items in cart"},
		{name: "params without placeholders", msg: "static", params: []any{1}, want: "static"},
		{name: "unterminated brace", msg: "{0} and {1", params: []any{"x"}, want: "x and {1"},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			r := NewRecord(Info, scenario.msg, WithParams(scenario.params...))
			assert.Equal(t, scenario.want, FormatMessage(r))
		})
	}
}

func TestSimpleFormatter(t *testing.T) {
	at := time.Date(2024, 1, 15, 13, 4, 5, 0, time.UTC)

	scenarios := []struct {
		name      string
		formatter *SimpleFormatter
		record    *Record
		want      string
	}{
		{
			name:      "default format",
			formatter: NewSimpleFormatter(),
			record:    NewRecord(Warning, "low disk", WithTime(at), WithLoggerName("disk")),
			want:      "Jan 15, 2024 1:04:05 PM disk\nWARNING: low disk\n",
		},
		{
			name:      "source and thrown",
			formatter: NewSimpleFormatter(),
			record: NewRecord(Severe, "failed", WithTime(at), WithSource("svc.Order", "Create"),
				WithError(errors.New("timeout"))),
			want: "Jan 15, 2024 1:04:05 PM svc.Order Create\nSEVERE: failed\ntimeout\n",
		},
		{
			name:      "custom tokens",
			formatter: NewSimpleFormatter(WithFormat("[{level}] {logger} {goroutine}: {message}"), WithTimeLayout(time.RFC3339)),
			record:    NewRecord(Info, "{0}!", WithParams("hi"), WithLoggerName("a.b"), WithGoroutineID(7)),
			want:      "[INFO] a.b 7: hi!",
		},
		{
			name:      "unknown token kept",
			formatter: NewSimpleFormatter(WithFormat("{nope} {message}")),
			record:    NewRecord(Info, "x"),
			want:      "{nope} x",
		},
		{
			name:      "custom time layout",
			formatter: NewSimpleFormatter(WithFormat("{date}"), WithTimeLayout(time.DateTime)),
			record:    NewRecord(Info, "x", WithTime(at)),
			want:      "2024-01-15 13:04:05",
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			assert.Equal(t, scenario.want, scenario.formatter.Format(scenario.record))
		})
	}
}

func TestXMLFormatter(t *testing.T) {
	f := NewXMLFormatter()
	at := time.Date(2024, 1, 15, 13, 4, 5, 1_500_000, time.UTC)

	r := NewRecord(Severe, "a < b & c",
		WithTime(at),
		WithLoggerName("orders"),
		WithSource("svc.Order", "Create"),
		WithGoroutineID(9),
		WithError(errors.New(`bad "quote"`)),
	)
	out := f.Format(r)

	assert.True(t, strings.HasPrefix(out, "<record>\n"))
	assert.True(t, strings.HasSuffix(out, "</record>\n"))
	assert.Contains(t, out, "  <date>2024-01-15T13:04:05.0015Z</date>\n")
	assert.Contains(t, out, "  <millis>1705323845001</millis>\n")
	assert.Contains(t, out, "  <nanos>500000</nanos>\n")
	assert.Contains(t, out, "  <logger>orders</logger>\n")
	assert.Contains(t, out, "  <level>SEVERE</level>\n")
	assert.Contains(t, out, "  <class>svc.Order</class>\n")
	assert.Contains(t, out, "  <method>Create</method>\n")
	assert.Contains(t, out, "  <thread>9</thread>\n")
	assert.Contains(t, out, "  <message>a &lt; b &amp; c</message>\n")
	assert.Contains(t, out, "<exception>\n    <message>bad &#34;quote&#34;</message>\n  </exception>\n")

	t.Run("head uses the handler encoding", func(t *testing.T) {
		h := NewStreamHandler(&strings.Builder{}, WithEncoding("ISO-8859-1"))
		assert.Contains(t, f.Head(h), `encoding="ISO-8859-1"`)
		assert.Contains(t, f.Head(NewStreamHandler(&strings.Builder{})), `encoding="UTF-8"`)
		assert.Equal(t, "</log>\n", f.Tail(h))
	})
}
