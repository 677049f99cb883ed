// Package telemetry provides OpenTelemetry tracing for Chatooli.
package telemetry

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Config represents the configuration for the telemetry system
type Config struct {
	// Enabled determines if tracing is enabled
	Enabled bool
	// ServiceName is the name of the service in traces
	ServiceName string
	// ServiceVersion is the version of the service in traces
	ServiceVersion string
	// SamplerType is the type of sampler to use (always, never, ratio)
	SamplerType string
	// SamplerRatio is the sampling ratio when using ratio sampler
	SamplerRatio float64
}

// InitTracer initializes the OpenTelemetry tracer provider.
// Returns a shutdown function to be called before application termination.
// The OTLP exporter is configured through the standard environment
// variables (OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_HEADERS).
func InitTracer(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	var shutdownFuncs []func(context.Context) error

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create resource")
	}

	traceExporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create trace exporter")
	}
	shutdownFuncs = append(shutdownFuncs, traceExporter.Shutdown)

	batchSpanProcessor := trace.NewBatchSpanProcessor(
		traceExporter,
		trace.WithMaxExportBatchSize(512),
		trace.WithBatchTimeout(1*time.Second),
	)

	tracerProvider := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSpanProcessor(batchSpanProcessor),
		trace.WithSampler(getSampler(cfg)),
	)
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		return err
	}, nil
}

func getSampler(cfg Config) trace.Sampler {
	switch cfg.SamplerType {
	case "always":
		return trace.AlwaysSample()
	case "never":
		return trace.NeverSample()
	case "ratio":
		return trace.ParentBased(trace.TraceIDRatioBased(cfg.SamplerRatio))
	default:
		return trace.AlwaysSample()
	}
}
