package slogger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/JailtonJunior94/logkit/pkg/observability/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderTextOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewProvider(Config{Level: observability.LogLevelWarn, Format: observability.LogFormatText, Output: &buf})
	ctx := context.Background()

	p.Logger().Info(ctx, "dropped below threshold")
	p.Logger().Warn(ctx, "unknown handler", observability.String("handler", "Bogus"))

	out := buf.String()
	assert.NotContains(t, out, "dropped below threshold")
	assert.Contains(t, out, "unknown handler")
	assert.Contains(t, out, "handler=Bogus")
}

func TestProviderJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewProvider(Config{Level: observability.LogLevelDebug, Format: observability.LogFormatJSON, Output: &buf})

	p.Logger().With(observability.String("component", "manager")).
		Error(context.Background(), "close failed", observability.Error(errors.New("busy")), observability.Int("handlers", 2))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "close failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "manager", entry["component"])
	assert.Equal(t, "busy", entry["error"])
	assert.Equal(t, float64(2), entry["handlers"])
}

func TestWithMetrics(t *testing.T) {
	metrics := fake.NewFakeMetrics()
	p := NewProvider(DefaultConfig(), WithMetrics(metrics))
	assert.Same(t, metrics, p.Metrics())

	p = NewProvider(DefaultConfig(), WithMetrics(nil))
	assert.NotNil(t, p.Metrics())
}

func TestConvertLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", convertLogLevel(observability.LogLevelDebug).String())
	assert.Equal(t, "INFO", convertLogLevel("bogus").String())
	assert.Equal(t, "ERROR", convertLogLevel(observability.LogLevelError).String())
}
