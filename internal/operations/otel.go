package operations

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"navcli/internal/infrastructure"
)

// OperationTracer instruments operation and step executions
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewOperationTracer wraps a tracer and the shared business metrics.
// Nil arguments fall back to no-op implementations.
func NewOperationTracer(tracer trace.Tracer, metrics *infrastructure.BusinessMetrics) *OperationTracer {
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(infrastructure.MeterName)
	}
	if metrics == nil {
		metrics, _ = infrastructure.CreateBusinessMetrics(noop.NewMeterProvider().Meter(infrastructure.MeterName))
	}
	return &OperationTracer{tracer: tracer, metrics: metrics}
}

// Metrics returns the business metrics the tracer records into.
func (t *OperationTracer) Metrics() *infrastructure.BusinessMetrics { return t.metrics }

// TraceOperation starts the span covering a whole operation
func (t *OperationTracer) TraceOperation(ctx context.Context, operationID string, steps int) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.Int("operation.steps", steps),
		),
	)
	t.metrics.OperationExecutionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", "start")))
	return ctx, span
}

// TraceStep starts a child span for one step attempt
func (t *OperationTracer) TraceStep(ctx context.Context, operationID, stepID string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "operation.step."+stepID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stepID),
			attribute.Int("step.attempt", attempt),
		),
	)
}

// RecordStepCompletion closes out a step span and records its duration
func (t *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.metrics.OperationErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("step", stepID),
			attribute.String("type", string(GetErrorType(err))),
		))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(attribute.String("step.status", status))
	t.metrics.OperationStepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("step", stepID),
		attribute.String("status", status),
	))
}

// RecordOperationCompletion closes out the operation span
func (t *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, duration time.Duration, status OperationStatusValue, err error) {
	span.SetAttributes(
		attribute.String("operation.status", string(status)),
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	attrs := metric.WithAttributes(attribute.String("status", string(status)))
	t.metrics.OperationExecutionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", string(status))))
	t.metrics.OperationExecutionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordProgress adds a progress event to the current span
func (t *OperationTracer) RecordProgress(ctx context.Context, stepID string, progress float64, message string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("step.progress", trace.WithAttributes(
		attribute.String("step.id", stepID),
		attribute.Float64("step.progress", progress),
		attribute.String("step.message", message),
	))
}
