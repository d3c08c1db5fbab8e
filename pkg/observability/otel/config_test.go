package otel

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"testing"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestValidateSecurityConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{
			name:    "production with insecure should fail",
			config:  &Config{Environment: "production", Insecure: true},
			wantErr: "insecure connections are not allowed in production environment",
		},
		{
			name:    "prod with insecure should fail",
			config:  &Config{Environment: "prod", Insecure: true},
			wantErr: "insecure connections are not allowed in production environment",
		},
		{
			name:   "development with insecure is ok",
			config: &Config{Environment: "development", Insecure: true},
		},
		{
			name:    "TLS version too low should fail",
			config:  &Config{Environment: "production", TLSConfig: &tls.Config{MinVersion: tls.VersionTLS10}},
			wantErr: "minimum TLS version must be 1.2 or higher",
		},
		{
			name:   "TLS 1.2 is ok",
			config: &Config{Environment: "production", TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSecurityConfig(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigValidateRequiresServiceName(t *testing.T) {
	cfg := DefaultConfig("")
	assert.Error(t, cfg.Validate())
	assert.NoError(t, DefaultConfig("logkit").Validate())
}

func TestNormalizeProtocol(t *testing.T) {
	assert.Equal(t, ProtocolHTTP, normalizeProtocol("HTTP"))
	assert.Equal(t, ProtocolHTTP, normalizeProtocol("http/protobuf"))
	assert.Equal(t, ProtocolGRPC, normalizeProtocol(""))
	assert.Equal(t, ProtocolGRPC, normalizeProtocol("carrier-pigeon"))
}

type memoryExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryExporter) Export(ctx context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryExporter) Shutdown(ctx context.Context) error   { return nil }
func (e *memoryExporter) ForceFlush(ctx context.Context) error { return nil }

func (e *memoryExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func TestProviderExportsDiagnosticsAndMetrics(t *testing.T) {
	ctx := context.Background()
	exporter := &memoryExporter{}
	reader := sdkmetric.NewManualReader()

	cfg := DefaultConfig("logkit-test")
	cfg.LogLevel = observability.LogLevelError
	provider, err := NewProvider(ctx, cfg, WithLogExporter(exporter), WithMetricReader(reader))
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	provider.Logger().With(observability.String("component", "manager")).
		Warn(ctx, "unknown handler", observability.Error(errors.New("not registered")))
	assert.Equal(t, []string{"unknown handler"}, exporter.bodies())

	counter := provider.Metrics().Counter("logkit_file_rotations_total", "rotations", "1")
	assert.Same(t, counter, provider.Metrics().Counter("logkit_file_rotations_total", "rotations", "1"))
	counter.Add(ctx, 2)
	counter.Increment(ctx, observability.String("pattern", "app.log"))
	provider.Metrics().Histogram("logkit_rotation_seconds", "rotation", "s").Record(ctx, 0.1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := make([]string, 0)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"logkit_file_rotations_total", "logkit_rotation_seconds"}, names)

	assert.NotNil(t, provider.LoggerProvider())
}

func TestNewProviderRejectsNilConfig(t *testing.T) {
	_, err := NewProvider(context.Background(), nil)
	assert.Error(t, err)
}
