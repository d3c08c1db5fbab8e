package noop_test

import (
	"context"
	"errors"
	"testing"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/JailtonJunior94/logkit/pkg/observability/noop"
	"github.com/stretchr/testify/assert"
)

func TestNoopProvider(t *testing.T) {
	provider := noop.NewProvider()
	ctx := context.Background()

	t.Run("logger never panics and With returns a logger", func(t *testing.T) {
		logger := provider.Logger()
		assert.NotNil(t, logger)
		assert.NotPanics(t, func() {
			logger.Debug(ctx, "debug")
			logger.Info(ctx, "info", observability.String("k", "v"))
			logger.Warn(ctx, "warn")
			logger.Error(ctx, "error", observability.Error(errors.New("boom")))
		})
		assert.NotNil(t, logger.With(observability.String("logger", "a.b")))
	})

	t.Run("metrics instruments are usable", func(t *testing.T) {
		metrics := provider.Metrics()
		assert.NotPanics(t, func() {
			metrics.Counter("logkit_records_dispatched_total", "records", "1").Increment(ctx)
			metrics.Counter("logkit_records_dispatched_total", "records", "1").Add(ctx, 5)
			metrics.Histogram("logkit_rotation_seconds", "rotation", "s").Record(ctx, 0.5)
		})
	})
}
