package logging

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	t.Run("sequence increases", func(t *testing.T) {
		first := NewRecord(Info, "one")
		second := NewRecord(Info, "two")
		assert.Greater(t, second.Sequence(), first.Sequence())
	})

	t.Run("options", func(t *testing.T) {
		at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		boom := errors.New("boom")
		r := NewRecord(Warning, "disk {0}",
			WithParams("full"),
			WithError(boom),
			WithLoggerName("storage"),
			WithSource("storage.Disk", "Write"),
			WithTime(at),
			WithGoroutineID(42),
		)

		assert.Same(t, Warning, r.Level())
		assert.Equal(t, "disk {0}", r.Message())
		assert.Equal(t, []any{"full"}, r.Params())
		assert.ErrorIs(t, r.Err(), boom)
		assert.Equal(t, "storage", r.LoggerName())
		assert.Equal(t, "storage.Disk", r.SourceClass())
		assert.Equal(t, "Write", r.SourceMethod())
		assert.Equal(t, at, r.Time())
		assert.Equal(t, int64(42), r.GoroutineID())
	})

	t.Run("nil level defaults to info", func(t *testing.T) {
		assert.Same(t, Info, NewRecord(nil, "x").Level())
	})

	t.Run("no call site without inference", func(t *testing.T) {
		r := NewRecord(Info, "x")
		assert.Empty(t, r.SourceClass())
		assert.Empty(t, r.SourceMethod())
	})

	t.Run("goroutine id is captured", func(t *testing.T) {
		assert.Positive(t, NewRecord(Info, "x").GoroutineID())
	})
}

func TestCallerInference(t *testing.T) {
	m := NewManager(WithCallerInference(true))
	h := newCaptureHandler("h", nil)
	logger := m.Logger("inference")
	logger.AddHandler(h)

	logger.Info("from the test")

	require.Len(t, h.records, 1)
	r := h.records[0]
	assert.Equal(t, packagePath, r.SourceClass())
	assert.True(t, strings.HasPrefix(r.SourceMethod(), "TestCallerInference"), r.SourceMethod())
}

func TestSplitFunctionName(t *testing.T) {
	scenarios := []struct {
		fn         string
		wantClass  string
		wantMethod string
	}{
		{fn: "example.com/app/svc.(*Server).Handle", wantClass: "example.com/app/svc.(*Server)", wantMethod: "Handle"},
		{fn: "example.com/app/svc.Server.Close", wantClass: "example.com/app/svc", wantMethod: "Server.Close"},
		{fn: "example.com/app/svc.run.func1", wantClass: "example.com/app/svc", wantMethod: "run.func1"},
		{fn: "main.main", wantClass: "main", wantMethod: "main"},
		{fn: "nodot", wantClass: "nodot", wantMethod: ""},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.fn, func(t *testing.T) {
			class, method := splitFunctionName(scenario.fn)
			assert.Equal(t, scenario.wantClass, class)
			assert.Equal(t, scenario.wantMethod, method)
		})
	}
}
