package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"airecruiter/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ObservabilityConfig is the resolved telemetry setup for one process
type ObservabilityConfig struct {
	ServiceName     string
	ServiceVersion  string
	ServiceInstance string
	Enabled         bool
	Tracing         bool
	Metrics         bool
	ConsoleOutput   bool
	PrettyPrint     bool
	SampleRate      float64
	Interval        time.Duration
	Prometheus      PrometheusConfig
	OTLP            config.OTLPConfig
	// Switches gates the recruiting instruments. Nil turns all of them on.
	Switches *config.CustomMetricsConfig
}

// GetObservabilityConfig resolves the telemetry setup from application
// config. version fills in when no service version is configured.
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	src := cfg.Observability

	oc := ObservabilityConfig{
		ServiceName:     src.ServiceName,
		ServiceVersion:  src.ServiceVersion,
		ServiceInstance: src.ServiceInstance,
		Enabled:         src.Enabled,
		Tracing:         src.Tracing.Enabled,
		Metrics:         src.Metrics.Enabled,
		ConsoleOutput:   src.ConsoleOutput,
		PrettyPrint:     src.Console.PrettyPrint,
		SampleRate:      src.SampleRate,
		Interval:        src.Metrics.CollectionInterval,
		Prometheus: PrometheusConfig{
			Enabled:  src.Prometheus.Enabled,
			Endpoint: src.Prometheus.Endpoint,
			Port:     src.Prometheus.Port,
		},
		OTLP:     src.OTLP,
		Switches: &src.CustomMetrics,
	}
	if oc.ServiceVersion == "" {
		oc.ServiceVersion = version
	}
	if src.Tracing.SampleRate > 0 {
		oc.SampleRate = src.Tracing.SampleRate
	}
	return oc
}

func (c ObservabilityConfig) instanceID() string {
	if c.ServiceInstance != "" {
		return c.ServiceInstance
	}
	return c.ServiceName + "-1"
}

func (c ObservabilityConfig) interval() time.Duration {
	if c.Interval > 0 {
		return c.Interval
	}
	return 15 * time.Second
}

func (c ObservabilityConfig) switches() config.CustomMetricsConfig {
	if c.Switches != nil {
		return *c.Switches
	}
	return config.CustomMetricsConfig{
		AIOperations:    config.AIOperationsMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true},
		BusinessMetrics: config.BusinessMetricsConfig{Enabled: true, TrackSuccessRates: true},
		Infrastructure:  config.InfrastructureMetricsConfig{Enabled: true, TrackRateLimits: true},
	}
}

// ObservabilityManager owns the trace and meter providers. A nil manager
// is valid and records nothing.
type ObservabilityManager struct {
	config   ObservabilityConfig
	tracer   *sdktrace.TracerProvider
	meter    *sdkmetric.MeterProvider
	metrics  *Metrics
	closers  []func(context.Context) error
	readers  []sdkmetric.Reader
	resource *resource.Resource
}

// NewObservabilityManager installs the global providers described by cfg
func NewObservabilityManager(cfg ObservabilityConfig) (*ObservabilityManager, error) {
	return newObservabilityManager(cfg)
}

// newObservabilityManager accepts extra readers so tests can collect
func newObservabilityManager(cfg ObservabilityConfig, readers ...sdkmetric.Reader) (*ObservabilityManager, error) {
	om := &ObservabilityManager{config: cfg, readers: readers}
	if !cfg.Enabled {
		return om, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("service.instance.id", cfg.instanceID()),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}
	om.resource = res

	if err := om.startTracing(); err != nil {
		return nil, om.abort(fmt.Errorf("failed to initialize tracing: %w", err))
	}
	if err := om.startMetrics(); err != nil {
		return nil, om.abort(fmt.Errorf("failed to initialize metrics: %w", err))
	}
	return om, nil
}

// abort shuts down whatever started before err
func (om *ObservabilityManager) abort(err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return stderrors.Join(err, om.Shutdown(ctx))
}

func (om *ObservabilityManager) startTracing() error {
	exporter, err := om.spanExporter()
	if err != nil {
		return err
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(om.config.SampleRate))
	if !om.config.Tracing {
		sampler = sdktrace.NeverSample()
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(om.resource),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	om.tracer = tp
	om.closers = append(om.closers, tp.Shutdown)
	return nil
}

func (om *ObservabilityManager) startMetrics() error {
	readers, err := om.metricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(om.resource)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	om.meter = mp
	om.closers = append(om.closers, mp.Shutdown)

	if !om.config.Metrics {
		om.metrics = &Metrics{}
		return nil
	}
	metrics, err := newMetrics(mp.Meter(om.config.ServiceName))
	if err != nil {
		return err
	}
	om.metrics = metrics
	return nil
}

// GetMetrics returns the recruiting instruments. The result is never nil;
// instruments are unset when metrics are off.
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil || om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware traces and measures each API request
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if om == nil || om.tracer == nil {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(om.config.ServiceName,
		otelhttp.WithTracerProvider(om.tracer),
		otelhttp.WithMeterProvider(om.meter),
	)
}

// Tracer returns a named tracer, or a no-op one when telemetry is off
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if om == nil || om.tracer == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return om.tracer.Tracer(name)
}

// Shutdown flushes exporters and stops the metrics listener. Every closer
// runs even when an earlier one fails.
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	if om == nil {
		return nil
	}
	var errs []error
	for i := len(om.closers) - 1; i >= 0; i-- {
		if err := om.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	om.closers = nil
	return stderrors.Join(errs...)
}
