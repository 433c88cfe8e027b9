package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"notireport/internal/infrastructure"
	"notireport/pkg/contracts/domain"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// ReportTracer provides OpenTelemetry instrumentation for report runs
type ReportTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.ReportMetrics
}

// NewReportTracer creates a tracer from providers. Nil providers yield a
// tracer whose spans and instruments are no-ops.
func NewReportTracer(providers *infrastructure.OTelProviders) (*ReportTracer, error) {
	tracer := tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName)
	var meter metric.Meter = noop.NewMeterProvider().Meter(infrastructure.InstrumentationName)
	if providers != nil {
		tracer = providers.Tracer
		meter = providers.Meter
	}

	metrics, err := infrastructure.CreateReportMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create report metrics: %w", err)
	}
	return &ReportTracer{tracer: tracer, metrics: metrics}, nil
}

// Metrics exposes the instruments so the HTTP layer records on the same meter
func (rt *ReportTracer) Metrics() *infrastructure.ReportMetrics {
	return rt.metrics
}

// TraceRun creates the span covering a whole run
func (rt *ReportTracer) TraceRun(ctx context.Context, variant domain.VariantID, filename string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, fmt.Sprintf("report.run.%s", variant),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("report.variant", string(variant)),
			attribute.String("report.input", filename),
			attribute.String("report.trace_id", infrastructure.GetTraceID(ctx)),
		),
	)
}

// TraceStage creates a span for one pipeline stage
func (rt *ReportTracer) TraceStage(ctx context.Context, stage domain.RunState) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, fmt.Sprintf("report.stage.%s", stage),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("stage.name", string(stage))),
	)
}

// RecordStageCompletion closes a stage span and records its duration
func (rt *ReportTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stage domain.RunState, duration time.Duration, err error) {
	status := statusSuccess
	if err != nil {
		status = statusFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "stage completed")
	}
	span.SetAttributes(
		attribute.String("stage.status", status),
		attribute.Float64("stage.duration_seconds", duration.Seconds()),
	)
	span.End()

	rt.metrics.StageDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("stage", string(stage)),
			attribute.String("status", status),
		),
	)
}

// RecordRunCompletion closes the run span and counts the outcome
func (rt *ReportTracer) RecordRunCompletion(ctx context.Context, span trace.Span, variant domain.VariantID, records, skipped int, err error) {
	status := statusSuccess
	if err != nil {
		status = statusFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if stage, ok := StageOf(err); ok {
			span.SetAttributes(attribute.String("report.failed_stage", string(stage)))
		}
	} else {
		span.SetStatus(codes.Ok, "report ready")
	}
	span.SetAttributes(
		attribute.String("report.status", status),
		attribute.Int("report.records", records),
		attribute.Int("report.skipped_rows", skipped),
	)
	span.End()

	variantAttr := attribute.String("variant", string(variant))
	rt.metrics.ReportsTotal.Add(ctx, 1,
		metric.WithAttributes(variantAttr, attribute.String("status", status)))
	if records > 0 {
		rt.metrics.RecordsProcessed.Add(ctx, int64(records), metric.WithAttributes(variantAttr))
	}
	if skipped > 0 {
		rt.metrics.SkippedRows.Add(ctx, int64(skipped), metric.WithAttributes(variantAttr))
	}
}
