package otel

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"google.golang.org/grpc/credentials"
)

// OTLPProtocol defines the protocol to use for OTLP export.
type OTLPProtocol string

const (
	// ProtocolGRPC uses gRPC protocol for OTLP export (default: port 4317).
	ProtocolGRPC OTLPProtocol = "grpc"
	// ProtocolHTTP uses HTTP/protobuf protocol for OTLP export (default: port 4318).
	ProtocolHTTP OTLPProtocol = "http"
)

// Config holds the configuration for the OpenTelemetry provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPProtocol   OTLPProtocol

	Insecure  bool
	TLSConfig *tls.Config

	// MetricInterval is the export period of the periodic metric reader.
	MetricInterval time.Duration

	// Console diagnostics written next to the OTLP export.
	LogLevel  observability.LogLevel
	LogFormat observability.LogFormat

	ResourceAttributes map[string]string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName:    serviceName,
		ServiceVersion: "unknown",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		OTLPProtocol:   ProtocolGRPC,
		MetricInterval: time.Minute,
		LogLevel:       observability.LogLevelWarn,
		LogFormat:      observability.LogFormatJSON,
	}
}

// Validate checks the configuration before any exporter is created.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name is required")
	}
	return validateSecurityConfig(c)
}

func normalizeProtocol(protocol string) OTLPProtocol {
	switch strings.ToLower(protocol) {
	case "http", "http/protobuf":
		return ProtocolHTTP
	default:
		return ProtocolGRPC
	}
}

func validateSecurityConfig(config *Config) error {
	if config.Insecure {
		env := strings.ToLower(config.Environment)
		if env == "production" || env == "prod" {
			return fmt.Errorf("insecure connections are not allowed in production environment")
		}
	}

	if config.TLSConfig != nil && config.TLSConfig.MinVersion > 0 && config.TLSConfig.MinVersion < tls.VersionTLS12 {
		return fmt.Errorf("minimum TLS version must be 1.2 or higher for security compliance")
	}

	return nil
}

// Provider wires OTLP metric and log pipelines. Its LoggerProvider feeds the
// OpenTelemetry record handler; its Metrics and Logger serve as the manager's
// observability.
type Provider struct {
	config         *Config
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider
	logger         *otelLogger
	metrics        *otelMetrics
	shutdownFuncs  []func(context.Context) error

	logExporter  sdklog.Exporter
	metricReader sdkmetric.Reader
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogExporter replaces the OTLP log exporter, for example with an in-memory exporter in tests.
func WithLogExporter(exp sdklog.Exporter) Option {
	return func(p *Provider) {
		p.logExporter = exp
	}
}

// WithMetricReader replaces the periodic OTLP metric reader.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(p *Provider) {
		p.metricReader = r
	}
}

// NewProvider creates and initializes a new OpenTelemetry provider.
func NewProvider(ctx context.Context, config *Config, opts ...Option) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.OTLPProtocol = normalizeProtocol(string(config.OTLPProtocol))

	provider := &Provider{config: config}
	for _, opt := range opts {
		opt(provider)
	}

	res, err := provider.createResource(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := provider.initMeterProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	if err := provider.initLoggerProvider(ctx, res); err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger provider: %w", err)
	}

	provider.metrics = newOtelMetrics(provider.meterProvider.Meter(config.ServiceName))
	provider.logger = newOtelLogger(config, provider.loggerProvider.Logger(config.ServiceName))

	return provider, nil
}

func (p *Provider) createResource(ctx context.Context) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(p.config.ServiceName),
		semconv.ServiceVersion(p.config.ServiceVersion),
		semconv.DeploymentEnvironmentName(p.config.Environment),
	}
	for k, v := range p.config.ResourceAttributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return resource.New(ctx, resource.WithAttributes(attrs...))
}

func (p *Provider) initMeterProvider(ctx context.Context, res *resource.Resource) error {
	reader := p.metricReader
	if reader == nil {
		exporter, err := p.createMetricExporter(ctx)
		if err != nil {
			return fmt.Errorf("failed to create metrics exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(p.config.MetricInterval))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	p.shutdownFuncs = append(p.shutdownFuncs, p.meterProvider.Shutdown)
	return nil
}

func (p *Provider) createMetricExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	if p.config.OTLPProtocol == ProtocolHTTP {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(p.config.OTLPEndpoint)}
		if p.config.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		} else if p.config.TLSConfig != nil {
			opts = append(opts, otlpmetrichttp.WithTLSClientConfig(p.config.TLSConfig))
		}
		return otlpmetrichttp.New(ctx, opts...)
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	} else if p.config.TLSConfig != nil {
		opts = append(opts, otlpmetricgrpc.WithTLSCredentials(credentials.NewTLS(p.config.TLSConfig)))
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func (p *Provider) initLoggerProvider(ctx context.Context, res *resource.Resource) error {
	var processor sdklog.Processor
	if p.logExporter != nil {
		processor = sdklog.NewSimpleProcessor(p.logExporter)
	} else {
		exporter, err := p.createLogExporter(ctx)
		if err != nil {
			return fmt.Errorf("failed to create log exporter: %w", err)
		}
		processor = sdklog.NewBatchProcessor(exporter)
	}

	p.loggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(processor),
	)
	p.shutdownFuncs = append(p.shutdownFuncs, p.loggerProvider.Shutdown)
	return nil
}

func (p *Provider) createLogExporter(ctx context.Context) (sdklog.Exporter, error) {
	if p.config.OTLPProtocol == ProtocolHTTP {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(p.config.OTLPEndpoint)}
		if p.config.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		} else if p.config.TLSConfig != nil {
			opts = append(opts, otlploghttp.WithTLSClientConfig(p.config.TLSConfig))
		}
		return otlploghttp.New(ctx, opts...)
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	} else if p.config.TLSConfig != nil {
		opts = append(opts, otlploggrpc.WithTLSCredentials(credentials.NewTLS(p.config.TLSConfig)))
	}
	return otlploggrpc.New(ctx, opts...)
}

// Logger returns the diagnostics logger.
func (p *Provider) Logger() observability.Logger {
	return p.logger
}

// Metrics returns the OpenTelemetry metrics recorder.
func (p *Provider) Metrics() observability.Metrics {
	return p.metrics
}

// LoggerProvider exposes the log pipeline for record handlers.
func (p *Provider) LoggerProvider() otellog.LoggerProvider {
	return p.loggerProvider
}

// Shutdown flushes and stops every pipeline.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, shutdown := range p.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
