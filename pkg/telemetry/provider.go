// ABOUTME: OpenTelemetry provider implementation with metric and trace provider setup for ukv instrumentation
// ABOUTME: Handles provider lifecycle, resource detection, and lazily-created instruments

package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Provider implements Telemetry over a real OpenTelemetry SDK
// TracerProvider/MeterProvider pair.
type Provider struct {
	cfg            Config
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          metric.Meter
	tracer         oteltrace.Tracer

	mu         sync.Mutex
	histograms map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
}

// New builds a Provider from cfg, or a NoopTelemetry when cfg.Enabled is
// false.
func New(cfg Config) (Telemetry, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	res, err := sdkresource.Merge(sdkresource.Default(), sdkresource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	metricExporters, err := createMetricExporters(cfg)
	if err != nil {
		return nil, err
	}
	var metricOpts []sdkmetric.Option
	metricOpts = append(metricOpts, sdkmetric.WithResource(res))
	for _, exp := range metricExporters {
		metricOpts = append(metricOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}
	meterProvider := sdkmetric.NewMeterProvider(metricOpts...)

	traceExporters, err := createTraceExporters(cfg)
	if err != nil {
		return nil, err
	}
	var traceOpts []sdktrace.TracerProviderOption
	traceOpts = append(traceOpts, sdktrace.WithResource(res), sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)))
	for _, exp := range traceExporters {
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exp))
	}
	tracerProvider := sdktrace.NewTracerProvider(traceOpts...)

	return &Provider{
		cfg:            cfg,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		meter:          meterProvider.Meter(cfg.ServiceName),
		tracer:         tracerProvider.Tracer(cfg.ServiceName),
		histograms:     make(map[string]metric.Float64Histogram),
		counters:       make(map[string]metric.Int64Counter),
	}, nil
}

func (p *Provider) histogram(name string) metric.Float64Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h
	}
	h, err := p.meter.Float64Histogram(name)
	if err != nil {
		// Instrument creation failures are not fatal to the caller's
		// operation; fall back to a histogram registered as name+"_fallback".
		h, _ = p.meter.Float64Histogram(name + "_fallback")
	}
	p.histograms[name] = h
	return h
}

func (p *Provider) counter(name string) metric.Int64Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	c, err := p.meter.Int64Counter(name)
	if err != nil {
		c, _ = p.meter.Int64Counter(name + "_fallback")
	}
	p.counters[name] = c
	return c
}

func (p *Provider) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	p.histogram(name).Record(ctx, value, metric.WithAttributes(attrs...))
}

func (p *Provider) RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
	p.counter(name).Add(ctx, value, metric.WithAttributes(attrs...))
}

func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return p.tracer.Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}
	return nil
}
