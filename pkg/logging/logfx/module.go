// Package logfx wires a configured logging.Manager, and optionally its
// management server, into an fx application.
package logfx

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/JailtonJunior94/logkit/pkg/handlers/otelhandler"
	"github.com/JailtonJunior94/logkit/pkg/logging"
	"github.com/JailtonJunior94/logkit/pkg/mgmtserver"
	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/JailtonJunior94/logkit/pkg/observability/slogger"
	otellog "go.opentelemetry.io/otel/log"
	"go.uber.org/fx"
)

// Module provides a *logging.Manager configured from Config. Stopping the
// application resets the manager, closing every handler.
// Usage:
//
//	fx.New(
//	    logfx.Module,
//	    fx.Supply(logfx.Config{ConfigFile: "logging.properties"}),
//	)
var Module = fx.Module("logging",
	fx.Provide(ProvideManager),
)

// ServerModule serves the manager's loggers over HTTP on
// Config.ManagementAddress for the application's lifetime.
var ServerModule = fx.Module("logging-management",
	fx.Provide(ProvideServer),
	fx.Invoke(func(*mgmtserver.Server) {}),
)

// ManagerParams contains dependencies for creating a manager.
type ManagerParams struct {
	fx.In

	Config         Config
	Observability  observability.Observability `optional:"true"`
	LoggerProvider otellog.LoggerProvider      `optional:"true"`
	LC             fx.Lifecycle
}

// ProvideManager builds the manager and reads the configuration file, or
// the built-in default when none is set. When a log pipeline is available,
// OTelHandler can be named in the configuration.
func ProvideManager(p ManagerParams) (*logging.Manager, error) {
	o11y := p.Observability
	if o11y == nil {
		o11y = slogger.NewProvider(slogger.DefaultConfig())
	}

	m := logging.NewManager(
		logging.WithObservability(o11y),
		logging.WithCallerInference(p.Config.CallerInference),
	)
	if p.LoggerProvider != nil {
		otelhandler.Register(m, p.LoggerProvider)
	}

	var err error
	if strings.TrimSpace(p.Config.ConfigFile) != "" {
		err = m.ReadConfigurationFile(p.Config.ConfigFile)
	} else {
		err = m.ReadConfiguration(strings.NewReader(logging.DefaultConfiguration))
	}
	if err != nil {
		return nil, err
	}

	p.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			m.Reset()
			return nil
		},
	})

	return m, nil
}

// ServerParams contains dependencies for creating the management server.
type ServerParams struct {
	fx.In

	Config        Config
	Manager       *logging.Manager
	Observability observability.Observability `optional:"true"`
	LC            fx.Lifecycle
}

// ProvideServer creates the management server and binds it on start.
func ProvideServer(p ServerParams) (*mgmtserver.Server, error) {
	if strings.TrimSpace(p.Config.ManagementAddress) == "" {
		return nil, errors.New("logfx: management address is required")
	}
	o11y := p.Observability
	if o11y == nil {
		o11y = slogger.NewProvider(slogger.DefaultConfig())
	}

	srv, err := mgmtserver.New(p.Manager, o11y, mgmtserver.WithAddress(p.Config.ManagementAddress))
	if err != nil {
		return nil, err
	}

	serveCtx, cancel := context.WithCancel(context.Background())
	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr())
			if err != nil {
				cancel()
				return err
			}
			go func() { _ = srv.Serve(serveCtx, ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return srv.Shutdown(ctx)
		},
	})

	return srv, nil
}
