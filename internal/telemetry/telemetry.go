// Package telemetry wires OpenTelemetry tracing around C1's Worker.Execute
// and C5's Execution runs (spec §4.12: "Every Worker.execute call and every
// Execution's full run is wrapped in a span"). Grounded on goa-ai's
// runtime/agent/telemetry.ClueTracer — a thin wrapper around the global
// otel.Tracer — narrowed from its pluggable Tracer/Span interfaces down to
// two named tracers, since this repository has no second tracing backend to
// abstract over.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var (
	workerTracer   = otel.Tracer("browserworker")
	progressTracer = otel.Tracer("progress")
)

// Init configures the global TracerProvider to export to endpoint. Disabling
// telemetry (never calling Init) leaves the otel default no-op provider in
// place: StartAction/StartExecution still work, they just produce spans
// nobody collects — this is purely additive observability, per spec.
func Init(ctx context.Context, serviceName, endpoint string, insecure bool) (shutdown func(context.Context) error, err error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// StartAction opens a span around one Worker.Execute call.
func StartAction(ctx context.Context, sessionID string, kind string) (context.Context, trace.Span) {
	return workerTracer.Start(ctx, "browserworker.execute", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("action.kind", kind),
	))
}

// StartExecution opens a span around one Execution's full run.
func StartExecution(ctx context.Context, executionID, scriptID string) (context.Context, trace.Span) {
	return progressTracer.Start(ctx, "progress.execution", trace.WithAttributes(
		attribute.String("execution.id", executionID),
		attribute.String("script.id", scriptID),
	))
}

// End finalizes span. err sets the span to error status unless cancelled is
// true — a deliberate Cancel (stop_execution, session teardown) is not a
// failure (spec §4.12: "error on any non-Cancelled failure kind").
func End(span trace.Span, err error, cancelled bool) {
	if err != nil && !cancelled {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
