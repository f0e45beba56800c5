package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracing wraps report loads in OpenTelemetry spans.
type Tracing struct {
	tracer trace.Tracer
}

// NewTracing creates a Tracing over the given tracer. A nil tracer produces
// no-op spans so callers never need to branch.
func NewTracing(tracer trace.Tracer) *Tracing {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("icarus")
	}
	return &Tracing{tracer: tracer}
}

// StartLoad opens a span for one report load request.
func (t *Tracing) StartLoad(ctx context.Context, from, to string, planCount, metricCount int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "report.load",
		trace.WithAttributes(
			attribute.String("icarus.report.from", from),
			attribute.String("icarus.report.to", to),
			attribute.Int("icarus.report.plans", planCount),
			attribute.Int("icarus.report.metrics", metricCount),
		),
	)
}

// EndLoad closes a load span, recording the outcome.
func (t *Tracing) EndLoad(span trace.Span, noData bool, err error) {
	span.SetAttributes(attribute.Bool("icarus.report.no_data", noData))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
