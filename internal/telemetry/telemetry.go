package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config holds OpenTelemetry settings, read from the standard OTEL_* variables.
type Config struct {
	ServiceName      string        `mapstructure:"OTEL_SERVICE_NAME"`
	ServiceNamespace string        `mapstructure:"OTEL_SERVICE_NAMESPACE"`
	ServiceVersion   string        `mapstructure:"OTEL_SERVICE_VERSION"`
	Environment      string        `mapstructure:"ENV"`
	OTLPEndpoint     string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TracesSampler    string        `mapstructure:"OTEL_TRACES_SAMPLER"`
	SamplerRatio     float64       `mapstructure:"OTEL_TRACES_SAMPLER_ARG"`
	MetricsInterval  time.Duration `mapstructure:"OTEL_METRICS_EXPORT_INTERVAL"`
	Disabled         bool          `mapstructure:"OTEL_SDK_DISABLED"`
}

func LoadConfig() Config {
	v := viper.New()
	v.AutomaticEnv()

	defaults := map[string]interface{}{
		"OTEL_SERVICE_NAME":            "med-connect-api",
		"OTEL_SERVICE_NAMESPACE":       "medconnect",
		"OTEL_SERVICE_VERSION":         "1.0.0",
		"ENV":                          "development",
		"OTEL_EXPORTER_OTLP_ENDPOINT":  "localhost:4317",
		"OTEL_TRACES_SAMPLER":          "always_on",
		"OTEL_TRACES_SAMPLER_ARG":      0.1,
		"OTEL_METRICS_EXPORT_INTERVAL": "30s",
		"OTEL_SDK_DISABLED":            false,
	}
	for k, d := range defaults {
		v.SetDefault(k, d)
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Warn().Err(err).Msg("invalid telemetry configuration, using defaults")
		return Config{
			ServiceName:      "med-connect-api",
			ServiceNamespace: "medconnect",
			ServiceVersion:   "1.0.0",
			Environment:      "development",
			OTLPEndpoint:     "localhost:4317",
			TracesSampler:    "always_on",
			SamplerRatio:     0.1,
			MetricsInterval:  30 * time.Second,
		}
	}
	return cfg
}

// Provider owns the tracer and meter providers. Either may be nil when the
// collector could not be reached at startup.
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	config         Config
}

// InitProvider installs global tracer/meter providers. Exporter failures are
// logged and the service keeps running without that signal.
func InitProvider(ctx context.Context, cfg Config) (*Provider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.Disabled {
		log.Info().Msg("OpenTelemetry disabled")
		return &Provider{config: cfg}, nil
	}

	log.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("initializing OpenTelemetry")

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceNamespace(cfg.ServiceNamespace),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Provider{config: cfg}

	tp, err := initTracerProvider(ctx, cfg, res)
	if err != nil {
		log.Warn().Err(err).Msg("tracer provider unavailable, continuing without distributed tracing")
	} else {
		otel.SetTracerProvider(tp)
		p.TracerProvider = tp
	}

	mp, err := initMeterProvider(ctx, cfg, res)
	if err != nil {
		log.Warn().Err(err).Msg("meter provider unavailable, continuing without metrics export")
	} else {
		otel.SetMeterProvider(mp)
		p.MeterProvider = mp
	}

	return p, nil
}

func sampler(cfg Config) trace.Sampler {
	switch cfg.TracesSampler {
	case "always_off":
		return trace.NeverSample()
	case "traceidratio":
		return trace.TraceIDRatioBased(cfg.SamplerRatio)
	case "parentbased_traceidratio":
		return trace.ParentBased(trace.TraceIDRatioBased(cfg.SamplerRatio))
	default:
		return trace.AlwaysSample()
	}
}

func initTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlptracegrpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(sampler(cfg)),
		trace.WithBatcher(exporter,
			trace.WithBatchTimeout(5*time.Second),
			trace.WithMaxExportBatchSize(512),
		),
	), nil
}

func initMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlpmetricgrpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter,
			metric.WithInterval(cfg.MetricsInterval),
		)),
	), nil
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down OpenTelemetry providers")

	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
