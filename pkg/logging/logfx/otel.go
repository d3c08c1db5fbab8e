package logfx

import (
	"context"
	"errors"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/JailtonJunior94/logkit/pkg/observability/otel"
	otellog "go.opentelemetry.io/otel/log"
	"go.uber.org/fx"
)

// OTelModule exports the manager's diagnostics, metrics and OTelHandler
// records over OTLP. It needs a *otel.Config; extra otel.Option values are
// collected from the "otel_options" group. Do not combine it with another
// observability.Observability provider.
// Usage:
//
//	fx.New(
//	    logfx.Module,
//	    logfx.OTelModule,
//	    fx.Supply(logfx.Config{ConfigFile: "logging.properties"}),
//	    fx.Supply(otel.DefaultConfig("orders")),
//	)
var OTelModule = fx.Module("logging-otel",
	fx.Provide(ProvideOTel),
)

// OTelParams contains dependencies for creating the OTLP provider.
type OTelParams struct {
	fx.In

	Config  *otel.Config
	LC      fx.Lifecycle
	Options []otel.Option `group:"otel_options"`
}

// OTelResult exposes the provider as the manager's observability and as the
// log pipeline for OTelHandler.
type OTelResult struct {
	fx.Out

	Provider       *otel.Provider
	Observability  observability.Observability
	LoggerProvider otellog.LoggerProvider
}

// ProvideOTel creates the provider and shuts it down on stop. The manager
// depends on it, so the manager closes its handlers first.
func ProvideOTel(p OTelParams) (OTelResult, error) {
	if p.Config == nil {
		return OTelResult{}, errors.New("logfx: otel config is required")
	}

	provider, err := otel.NewProvider(context.Background(), p.Config, p.Options...)
	if err != nil {
		return OTelResult{}, err
	}

	p.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})

	return OTelResult{
		Provider:       provider,
		Observability:  provider,
		LoggerProvider: provider.LoggerProvider(),
	}, nil
}
