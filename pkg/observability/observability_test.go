package observability_test

import (
	"errors"
	"testing"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/stretchr/testify/assert"
)

func TestFieldHelpers(t *testing.T) {
	sentinel := errors.New("disk full")

	tests := []struct {
		name  string
		field observability.Field
		key   string
		value any
	}{
		{name: "string", field: observability.String("logger", "a.b"), key: "logger", value: "a.b"},
		{name: "int", field: observability.Int("count", 3), key: "count", value: 3},
		{name: "int64", field: observability.Int64("bytes", 1<<40), key: "bytes", value: int64(1 << 40)},
		{name: "bool", field: observability.Bool("append", true), key: "append", value: true},
		{name: "error", field: observability.Error(sentinel), key: "error", value: sentinel},
		{name: "any", field: observability.Any("levels", []string{"INFO"}), key: "levels", value: []string{"INFO"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.field.Key)
			assert.Equal(t, tt.value, tt.field.Value)
		})
	}
}
