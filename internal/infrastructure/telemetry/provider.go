// Package telemetry wires OpenTelemetry tracing, metrics, log export and
// continuous profiling for the ledger.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerdesk/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const (
	shutdownTimeout      = 10 * time.Second
	metricExportInterval = time.Minute
)

// Providers owns the SDK providers this process exports through. A signal
// that is switched off has a nil provider and the no-op global stays put.
type Providers struct {
	traces   *sdktrace.TracerProvider
	metrics  *sdkmetric.MeterProvider
	logs     *sdklog.LoggerProvider
	profiler *profiler
	log      *zap.Logger
}

// Setup starts the OTLP/gRPC exporters that cfg switches on and installs
// them as the global providers. Exporters dial lazily, so a collector that
// is down does not fail startup.
func Setup(ctx context.Context, cfg config.TelemetryConfig, version string, log *zap.Logger) (*Providers, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Providers{log: log}
	if !cfg.Enabled && !cfg.MetricsEnabled && !cfg.LogsEnabled && !cfg.Profiling.Enabled {
		log.Info("Telemetry disabled")
		return p, nil
	}

	res, err := serviceResource(cfg.ServiceName, version)
	if err != nil {
		return nil, err
	}

	if cfg.Enabled {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create OTLP trace exporter: %w", err)
		}
		p.traces = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(samplerFor(cfg.SamplingRatio)),
		)
		otel.SetTracerProvider(p.traces)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		log.Info("Tracing enabled",
			zap.String("collector_endpoint", cfg.CollectorEndpoint),
			zap.Float64("sampling_ratio", cfg.SamplingRatio),
		)
	}

	if cfg.MetricsEnabled {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("create OTLP metric exporter: %w", err)
		}
		reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricExportInterval))
		p.metrics = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
		otel.SetMeterProvider(p.metrics)
		log.Info("Metrics enabled", zap.Duration("export_interval", metricExportInterval))
	}

	if cfg.LogsEnabled {
		p.logs, err = newLoggerProvider(ctx, cfg.CollectorEndpoint, cfg.Insecure, res)
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
		log.Info("Log export enabled")
	}

	if cfg.Profiling.Enabled {
		p.profiler, err = startProfiler(cfg.Profiling, cfg.ServiceName, log)
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
		if cfg.Profiling.SpanProfiles && p.TracingEnabled() {
			p.linkSpanProfiles()
		}
	}
	return p, nil
}

// WithMetricReader builds Providers that feed metrics to reader and leave
// the globals alone. Tests collect from a manual reader this way.
func WithMetricReader(reader sdkmetric.Reader, serviceName, version string) (*Providers, error) {
	res, err := serviceResource(serviceName, version)
	if err != nil {
		return nil, err
	}
	return &Providers{
		metrics: sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader)),
		log:     zap.NewNop(),
	}, nil
}

func (p *Providers) TracingEnabled() bool { return p != nil && p.traces != nil }

func (p *Providers) MetricsEnabled() bool { return p != nil && p.metrics != nil }

func (p *Providers) LogsEnabled() bool { return p != nil && p.logs != nil }

func (p *Providers) ProfilingEnabled() bool { return p != nil && p.profiler != nil }

// Meter returns a named meter; with metrics off it is the global no-op one
func (p *Providers) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if !p.MetricsEnabled() {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return p.metrics.Meter(name, opts...)
}

// Shutdown flushes whatever is still buffered and stops the profiler. Every
// provider is flushed even when an earlier one fails.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if p.traces != nil {
		if err := p.traces.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if p.metrics != nil {
		if err := p.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown logger provider: %w", err))
		}
	}
	if err := p.profiler.stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop profiler: %w", err))
	}
	if len(errs) == 0 && (p.traces != nil || p.metrics != nil || p.logs != nil || p.profiler != nil) {
		p.log.Info("Telemetry flushed")
	}
	return errors.Join(errs...)
}

// samplerFor follows the caller's sampling decision and applies ratio to new traces
func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// serviceResource is shared by traces and metrics so both join up on
// service name and version.
func serviceResource(name, version string) (*resource.Resource, error) {
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}
	return res, nil
}
