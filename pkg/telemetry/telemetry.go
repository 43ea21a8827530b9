// Package telemetry sets up tracing and metrics for blogmind.
//
// Spans and counters are always safe to use: until Init installs real
// providers they go to the global no-op implementations.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/inkwell/blogmind/pkg/config"
	"github.com/inkwell/blogmind/pkg/logging"
)

// instrumentationName scopes every tracer and meter created here
const instrumentationName = "github.com/inkwell/blogmind"

// shutdownTimeout bounds flushing of buffered spans and metrics
const shutdownTimeout = 5 * time.Second

// Version is reported as service.version; overridden at build time with
// -ldflags "-X github.com/inkwell/blogmind/pkg/telemetry.Version=..."
var Version = "dev"

type shutdownFunc func(context.Context) error

// Init installs the Jaeger trace exporter (when jaeger_url is set) and the
// Prometheus metrics exporter (when enabled). The returned function flushes
// and stops both.
func Init(cfg *config.TelemetryConfig) (func(), error) {
	logger := logging.WithComponent("telemetry")
	if !cfg.Enabled {
		logger.Info("Telemetry disabled")
		return func() {}, nil
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	var shutdowns []shutdownFunc

	if cfg.JaegerURL != "" {
		fn, err := setupTracing(cfg.JaegerURL, res)
		if err != nil {
			return nil, err
		}
		shutdowns = append(shutdowns, fn)
		logger.Info("Tracing to Jaeger", zap.String("url", cfg.JaegerURL))
	}

	if cfg.PrometheusEnabled {
		fn, err := setupMetrics(res)
		if err != nil {
			runShutdowns(logger, shutdowns)
			return nil, err
		}
		shutdowns = append(shutdowns, fn)
		logger.Info("Prometheus metrics enabled")
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func() { runShutdowns(logger, shutdowns) }, nil
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func setupTracing(endpoint string, res *resource.Resource) (shutdownFunc, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// setupMetrics registers on the default prometheus registerer, which the
// API serves at /metrics.
func setupMetrics(res *resource.Resource) (shutdownFunc, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

func runShutdowns(logger *zap.Logger, shutdowns []shutdownFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, fn := range shutdowns {
		if err := fn(ctx); err != nil {
			logger.Error("Error shutting down telemetry", zap.Error(err))
		}
	}
}

// Tracer returns the blogmind tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Meter returns the blogmind meter from the global provider
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// StartSpan starts a new span
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// Fail marks span as failed with err. A nil err leaves the span untouched.
func Fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
