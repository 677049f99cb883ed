package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a named tracer from the global provider.
// If the name is empty, it uses "chatooli" as the default.
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = "chatooli"
	}
	return otel.GetTracerProvider().Tracer(name)
}

// WithSpan wraps a function with a span, setting the status and
// recording errors automatically.
func WithSpan(ctx context.Context, name string, f func(context.Context) error, attrs ...attribute.KeyValue) error {
	tracer := Tracer("chatooli")
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	err := f(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return err
}

// AddEvent adds an event to the current span
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes adds attributes to the current span
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attrs...)
}
