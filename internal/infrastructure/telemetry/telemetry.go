// Package telemetry wires the OTLP export pipelines for traces, metrics,
// and logs. One Provider owns every configured signal so the binaries can
// bring the whole stack up, and later drain it, with a single call.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// serviceVersion is reported as service.version on every exported signal.
const serviceVersion = "1.0.0"

// shutdownTimeout bounds how long Shutdown waits for exporters to drain.
const shutdownTimeout = 10 * time.Second

// defaultMetricInterval is the periodic reader interval when the config
// leaves it unset.
const defaultMetricInterval = 30 * time.Second

// Signals selects which export pipelines Setup brings up.
type Signals struct {
	Traces  bool
	Metrics bool
	Logs    bool
}

// AllSignals enables every pipeline. The HTTP server uses this.
func AllSignals() Signals {
	return Signals{Traces: true, Metrics: true, Logs: true}
}

// MetricsOnly enables just the metrics pipeline. The CLI uses this: a
// one-shot process records run counters but has nothing to gain from a
// trace batcher it immediately drains.
func MetricsOnly() Signals {
	return Signals{Metrics: true}
}

// Config describes the collector connection shared by all signals.
type Config struct {
	// Enabled gates the entire stack. When false, Setup returns an inert
	// Provider and no exporter is dialed.
	Enabled bool
	// Endpoint is the collector gRPC address as host:port.
	Endpoint string
	// Insecure disables TLS on the collector connection.
	Insecure bool
	// ServiceName is reported as service.name on every signal.
	ServiceName string
	// SamplingRatio is the head sampling ratio for traces in [0, 1].
	// Values outside the range clamp to never/always.
	SamplingRatio float64
	// MetricInterval is the export interval of the periodic metric
	// reader. Zero means 30s.
	MetricInterval time.Duration
}

// Provider owns the export pipelines for the signals Setup was asked for.
// A nil or inert Provider is safe to use everywhere: accessors fall back
// to the otel globals and Shutdown is a no-op.
type Provider struct {
	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logs    *sdklog.LoggerProvider
}

// Setup dials the collector and installs the requested pipelines as the
// otel globals. With cfg.Enabled false it returns an inert Provider, so
// callers never branch on whether telemetry is configured. On failure the
// pipelines already started are drained before the error is returned.
func Setup(ctx context.Context, cfg Config, signals Signals, log *zap.Logger) (*Provider, error) {
	if log == nil {
		log = zap.NewNop()
	}

	p := &Provider{}
	if !cfg.Enabled {
		return p, nil
	}

	res, err := buildResource(cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	if signals.Traces {
		if err := p.startTraces(ctx, cfg, res); err != nil {
			_ = p.Shutdown(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("start trace pipeline: %w", err)
		}
	}
	if signals.Metrics {
		if err := p.startMetrics(ctx, cfg, res); err != nil {
			_ = p.Shutdown(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("start metric pipeline: %w", err)
		}
	}
	if signals.Logs {
		if err := p.startLogs(ctx, cfg, res); err != nil {
			_ = p.Shutdown(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("start log pipeline: %w", err)
		}
	}

	log.Info("Telemetry started",
		zap.String("endpoint", cfg.Endpoint),
		zap.Bool("traces", p.traces != nil),
		zap.Bool("metrics", p.metrics != nil),
		zap.Bool("logs", p.logs != nil),
	)
	return p, nil
}

func (p *Provider) startTraces(ctx context.Context, cfg Config, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create trace exporter: %w", err)
	}

	p.traces = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SamplingRatio)),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(p.traces)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

func (p *Provider) startMetrics(ctx context.Context, cfg Config, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create metric exporter: %w", err)
	}

	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = defaultMetricInterval
	}
	p.metrics = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(interval),
		)),
	)
	otel.SetMeterProvider(p.metrics)
	return nil
}

func (p *Provider) startLogs(ctx context.Context, cfg Config, res *resource.Resource) error {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("create log exporter: %w", err)
	}

	p.logs = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(p.logs)
	return nil
}

// Tracer returns a tracer from this Provider's pipeline, or the global
// (noop by default) tracer when traces are not running.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p != nil && p.traces != nil {
		return p.traces.Tracer(name)
	}
	return otel.Tracer(name)
}

// Meter returns a meter from this Provider's pipeline, or the global
// (noop by default) meter when metrics are not running.
func (p *Provider) Meter(name string) metric.Meter {
	if p != nil && p.metrics != nil {
		return p.metrics.Meter(name)
	}
	return otel.Meter(name)
}

// TracesEnabled reports whether the trace pipeline is exporting.
func (p *Provider) TracesEnabled() bool {
	return p != nil && p.traces != nil
}

// MetricsEnabled reports whether the metric pipeline is exporting.
func (p *Provider) MetricsEnabled() bool {
	return p != nil && p.metrics != nil
}

// LogsEnabled reports whether the log pipeline is exporting.
func (p *Provider) LogsEnabled() bool {
	return p != nil && p.logs != nil
}

// Shutdown drains and stops every running pipeline, waiting at most
// shutdownTimeout. All pipelines are attempted even when one fails; the
// errors are joined. Safe to call twice and on a nil Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if p.traces != nil {
		if err := p.traces.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown traces: %w", err))
		}
		p.traces = nil
	}
	if p.metrics != nil {
		if err := p.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics: %w", err))
		}
		p.metrics = nil
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown logs: %w", err))
		}
		p.logs = nil
	}
	return errors.Join(errs...)
}

// buildResource merges the environment-derived default resource with the
// service identity attributes.
func buildResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
}

// samplerFor maps the configured ratio onto a head sampler. Out-of-range
// values clamp instead of erroring so a typo in the ratio cannot take the
// service down.
func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}
