package logging

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/JailtonJunior94/logkit/pkg/observability/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportedError struct {
	msg  string
	err  error
	kind ErrorKind
}

type errorCollector struct {
	mu      sync.Mutex
	reports []reportedError
}

func (c *errorCollector) Error(msg string, err error, kind ErrorKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, reportedError{msg: msg, err: err, kind: kind})
}

func (c *errorCollector) kinds() []ErrorKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ErrorKind, 0, len(c.reports))
	for _, r := range c.reports {
		out = append(out, r.kind)
	}
	return out
}

type panicFormatter struct{}

func (panicFormatter) Format(*Record) string { panic("bad template") }
func (panicFormatter) Head(Handler) string   { return "" }
func (panicFormatter) Tail(Handler) string   { return "" }

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func messageFormatter() Formatter {
	return NewSimpleFormatter(WithFormat("{level} {message}\n"))
}

func TestStreamHandler(t *testing.T) {
	t.Run("defaults to info and buffers until flush", func(t *testing.T) {
		var out bytes.Buffer
		h := NewStreamHandler(&out, WithFormatter(messageFormatter()))
		assert.Same(t, Info, h.Level())

		h.Publish(NewRecord(Fine, "hidden"))
		h.Publish(NewRecord(Info, "shown"))
		assert.Empty(t, out.String())

		h.Flush()
		assert.Equal(t, "INFO shown\n", out.String())
	})

	t.Run("head before first record and tail on close", func(t *testing.T) {
		out := &closeRecorder{}
		h := NewStreamHandler(out, WithFormatter(NewXMLFormatter()))

		h.Publish(NewRecord(Info, "one"))
		require.NoError(t, h.Close())

		text := out.String()
		assert.Contains(t, text, "<log>\n<record>")
		assert.Contains(t, text, "</record>\n</log>\n")
		assert.True(t, out.closed)
	})

	t.Run("close is terminal and idempotent", func(t *testing.T) {
		var out bytes.Buffer
		h := NewStreamHandler(&out, WithFormatter(messageFormatter()))
		require.NoError(t, h.Close())
		require.NoError(t, h.Close())

		h.Publish(NewRecord(Severe, "late"))
		h.Flush()
		assert.Empty(t, out.String())
	})

	t.Run("filter rejects records", func(t *testing.T) {
		var out bytes.Buffer
		h := NewStreamHandler(&out,
			WithFormatter(messageFormatter()),
			WithFilter(FilterFunc(func(r *Record) bool { return r.Message() != "secret" })),
		)
		h.Publish(NewRecord(Info, "secret"))
		h.Publish(NewRecord(Info, "public"))
		h.Flush()
		assert.Equal(t, "INFO public\n", out.String())
	})

	t.Run("level off rejects everything", func(t *testing.T) {
		var out bytes.Buffer
		h := NewStreamHandler(&out, WithLevel(Off))
		h.Publish(NewRecord(Severe, "x"))
		h.Flush()
		assert.Empty(t, out.String())
	})

	t.Run("encodes output", func(t *testing.T) {
		var out bytes.Buffer
		h := NewStreamHandler(&out, WithFormatter(NewSimpleFormatter(WithFormat("{message}"))), WithEncoding("ISO-8859-1"))
		h.Publish(NewRecord(Info, "café"))
		h.Flush()
		assert.Equal(t, []byte{'c', 'a', 'f', 0xE9}, out.Bytes())
	})

	t.Run("set encoding", func(t *testing.T) {
		var out bytes.Buffer
		h := NewStreamHandler(&out, WithFormatter(NewSimpleFormatter(WithFormat("{message}"))))
		require.Error(t, h.SetEncoding("no-such-charset"))

		require.NoError(t, h.SetEncoding("UTF-16LE"))
		assert.Equal(t, "UTF-16LE", h.Encoding())
		h.Publish(NewRecord(Info, "ok"))
		h.Flush()
		assert.Equal(t, []byte{'o', 0, 'k', 0}, out.Bytes())
	})

	t.Run("format failure is reported", func(t *testing.T) {
		var out bytes.Buffer
		errs := &errorCollector{}
		h := NewStreamHandler(&out, WithFormatter(panicFormatter{}), WithErrorManager(errs))

		assert.NotPanics(t, func() { h.Publish(NewRecord(Info, "x")) })
		assert.Equal(t, []ErrorKind{FormatFailure}, errs.kinds())
	})

	t.Run("write failure is reported on flush", func(t *testing.T) {
		errs := &errorCollector{}
		h := NewStreamHandler(failingWriter{}, WithErrorManager(errs))

		h.Publish(NewRecord(Info, "x"))
		h.Flush()
		assert.Equal(t, []ErrorKind{FlushFailure}, errs.kinds())
	})

	t.Run("set output closes the previous output", func(t *testing.T) {
		first := &closeRecorder{}
		second := &closeRecorder{}
		h := NewStreamHandler(first, WithFormatter(messageFormatter()))
		h.Publish(NewRecord(Info, "a"))

		h.SetOutput(second, second)
		h.Publish(NewRecord(Info, "b"))
		h.Flush()

		assert.True(t, first.closed)
		assert.Equal(t, "INFO a\n", first.String())
		assert.Equal(t, "INFO b\n", second.String())
	})
}

func TestConsoleHandlerFlushesEachRecord(t *testing.T) {
	var out bytes.Buffer
	h := newConsoleHandler(&out, WithFormatter(messageFormatter()))

	h.Publish(NewRecord(Warning, "now"))
	assert.Equal(t, "WARNING now\n", out.String())

	require.NoError(t, h.Close())
	h.Publish(NewRecord(Warning, "after close"))
	assert.Equal(t, "WARNING now\n", out.String())
}

func TestErrorManagers(t *testing.T) {
	t.Run("default reports only the first failure", func(t *testing.T) {
		var out bytes.Buffer
		em := NewErrorManager(&out)
		em.Error("write failed", errors.New("disk full"), WriteFailure)
		em.Error("write failed again", nil, WriteFailure)

		assert.Equal(t, "logkit.ErrorManager: 1: write failed: disk full\n", out.String())
	})

	t.Run("counting manager counts per kind", func(t *testing.T) {
		provider := fake.NewProvider()
		errs := &errorCollector{}
		em := NewCountingErrorManager(errs, provider.Metrics())

		em.Error("a", nil, OpenFailure)
		em.Error("b", nil, FormatFailure)

		assert.Equal(t, int64(2), provider.FakeMetrics().CounterTotal("logkit_handler_errors_total"))
		assert.Equal(t, []ErrorKind{OpenFailure, FormatFailure}, errs.kinds())
	})

	t.Run("panicking manager is contained", func(t *testing.T) {
		h := NewStreamHandler(failingWriter{}, WithErrorManager(ErrorManagerFunc(func(string, error, ErrorKind) {
			panic("error manager broke")
		})))
		h.Publish(NewRecord(Info, "x"))
		assert.NotPanics(t, h.Flush)
	})

	t.Run("kind names", func(t *testing.T) {
		assert.Equal(t, "generic", GenericFailure.String())
		assert.Equal(t, "close", CloseFailure.String())
		assert.Equal(t, "open", OpenFailure.String())
	})
}
