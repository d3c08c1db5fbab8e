package zaphandler

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublish(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h, err := New(core, logging.WithLevel(logging.Fine))
	require.NoError(t, err)

	at := time.Date(2024, 1, 15, 13, 4, 5, 0, time.UTC)
	h.Publish(logging.NewRecord(logging.Finest, "dropped"))
	h.Publish(logging.NewRecord(logging.Severe, "payment {0} failed",
		logging.WithParams("p-1"),
		logging.WithLoggerName("svc.pay"),
		logging.WithTime(at),
		logging.WithError(errors.New("declined")),
	))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "payment p-1 failed", entry.Message)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "svc.pay", entry.LoggerName)
	assert.Equal(t, at, entry.Time)

	fields := entry.ContextMap()
	assert.Equal(t, "SEVERE", fields["level_name"])
	assert.Equal(t, "declined", fields["error"])
}

func TestCoreLevelApplies(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h, err := New(core)
	require.NoError(t, err)

	h.Publish(logging.NewRecord(logging.Info, "filtered by core"))
	h.Publish(logging.NewRecord(logging.Warning, "kept"))

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, 1, logs.FilterMessage("kept").Len())
}

func TestZapLevel(t *testing.T) {
	scenarios := []struct {
		level    *logging.Level
		expected zapcore.Level
	}{
		{level: logging.Severe, expected: zapcore.ErrorLevel},
		{level: logging.Warning, expected: zapcore.WarnLevel},
		{level: logging.Info, expected: zapcore.InfoLevel},
		{level: logging.Config, expected: zapcore.DebugLevel},
		{level: logging.Finest, expected: zapcore.DebugLevel},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.level.Name(), func(t *testing.T) {
			assert.Equal(t, scenario.expected, ZapLevel(scenario.level))
		})
	}
}

func TestClose(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h, err := New(core)
	require.NoError(t, err)

	h.Flush()
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	h.Publish(logging.NewRecord(logging.Severe, "after close"))
	assert.Zero(t, logs.Len())

	_, err = New(nil)
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	t.Run("given core", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		m := logging.NewManager()
		Register(m, core)

		require.NoError(t, m.ReadConfiguration(strings.NewReader("handlers=ZapHandler\n")))
		m.Logger("svc").Info("ready")

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "svc", logs.All()[0].LoggerName)
	})

	t.Run("built core", func(t *testing.T) {
		m := logging.NewManager()
		Register(m, nil)

		require.NoError(t, m.ReadConfiguration(strings.NewReader("handlers=ZapHandler\nZapHandler.development=true\n")))
		handlers := m.Root().Handlers()
		require.Len(t, handlers, 1)
		assert.IsType(t, &Handler{}, handlers[0])
	})
}
