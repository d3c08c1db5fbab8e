package logfx

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/JailtonJunior94/logkit/pkg/handlers/otelhandler"
	"github.com/JailtonJunior94/logkit/pkg/logging"
	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/JailtonJunior94/logkit/pkg/observability/otel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

type recordingExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) bodies(scope string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, r := range e.records {
		if r.InstrumentationScope().Name == scope {
			out = append(out, r.Body().AsString())
		}
	}
	return out
}

func otelOption(opt otel.Option) fx.Option {
	return fx.Provide(fx.Annotate(
		func() otel.Option { return opt },
		fx.ResultTags(`group:"otel_options"`),
	))
}

func TestOTelModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.properties")
	require.NoError(t, os.WriteFile(path, []byte("handlers=OTelHandler\n.level=INFO\n"), 0o600))

	exporter := &recordingExporter{}
	var (
		m     *logging.Manager
		o11y  observability.Observability
		otelP *otel.Provider
	)
	app := fxtest.New(t,
		Module,
		OTelModule,
		fx.Supply(Config{ConfigFile: path}),
		fx.Supply(otel.DefaultConfig("orders")),
		otelOption(otel.WithLogExporter(exporter)),
		otelOption(otel.WithMetricReader(sdkmetric.NewManualReader())),
		fx.Populate(&m, &o11y, &otelP),
	)
	app.RequireStart()

	assert.Same(t, otelP, o11y)

	svc := m.Logger("svc")
	svc.Info("order accepted")
	svc.Fine("dropped below the root level")

	assert.Equal(t, []string{"order accepted"}, exporter.bodies(otelhandler.DefaultScope))

	app.RequireStop()
	runtime.KeepAlive(svc)
}

func TestOTelModuleRequiresConfig(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		Module,
		OTelModule,
		fx.Supply(Config{}),
		fx.Provide(func() *otel.Config { return nil }),
		fx.Invoke(func(*otel.Provider) {}),
	)
	assert.Error(t, app.Err())
}
