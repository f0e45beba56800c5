package otel

import (
	"context"
	"errors"
	"testing"

	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) (*Tracing, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return NewTracing(provider.Tracer("icarus/test")), exporter
}

func TestLoadSpanSuccess(t *testing.T) {
	tr, exporter := newTestTracer(t)

	_, span := tr.StartLoad(context.Background(), "2024-01-01", "2024-03-01", 3, 5)
	tr.EndLoad(span, false, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "report.load" {
		t.Fatalf("span name = %q", spans[0].Name)
	}
	if spans[0].Status.Code != otelcodes.Ok {
		t.Fatalf("status = %v, want Ok", spans[0].Status.Code)
	}
}

func TestLoadSpanError(t *testing.T) {
	tr, exporter := newTestTracer(t)

	_, span := tr.StartLoad(context.Background(), "2024-01-01", "2024-03-01", 1, 1)
	tr.EndLoad(span, true, errors.New("warehouse down"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != otelcodes.Error {
		t.Fatalf("status = %v, want Error", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Fatal("error span has no recorded error event")
	}
}

func TestNilTracerIsNoop(t *testing.T) {
	tr := NewTracing(nil)
	_, span := tr.StartLoad(context.Background(), "a", "b", 0, 0)
	tr.EndLoad(span, false, nil)
}
