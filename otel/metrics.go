// Package otel provides OpenTelemetry instrumentation for the dashboard:
// counters and histograms for logins and report loads, and spans around the
// load pipeline.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records dashboard activity through OpenTelemetry instruments.
type Metrics struct {
	logins        metric.Int64Counter
	loginFailures metric.Int64Counter
	reportLoads   metric.Int64Counter
	loadDuration  metric.Float64Histogram
}

// NewMetrics creates a Metrics that uses the given meter to create its
// instruments.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	logins, err := meter.Int64Counter("icarus.auth.logins",
		metric.WithDescription("Number of successful logins"),
	)
	if err != nil {
		return nil, err
	}

	loginFailures, err := meter.Int64Counter("icarus.auth.login_failures",
		metric.WithDescription("Number of failed login attempts"),
	)
	if err != nil {
		return nil, err
	}

	reportLoads, err := meter.Int64Counter("icarus.report.loads",
		metric.WithDescription("Number of report load requests"),
	)
	if err != nil {
		return nil, err
	}

	loadDuration, err := meter.Float64Histogram("icarus.report.load.duration",
		metric.WithDescription("Duration of report loads in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		logins:        logins,
		loginFailures: loginFailures,
		reportLoads:   reportLoads,
		loadDuration:  loadDuration,
	}, nil
}

// RecordLogin counts one authentication attempt.
func (m *Metrics) RecordLogin(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.logins.Add(ctx, 1)
		return
	}
	m.loginFailures.Add(ctx, 1)
}

// RecordReportLoad counts one report load and its duration.
func (m *Metrics) RecordReportLoad(ctx context.Context, seconds float64, noData bool, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.Bool("icarus.report.no_data", noData),
		attribute.Bool("icarus.report.error", err != nil),
	)
	m.reportLoads.Add(ctx, 1, attrs)
	m.loadDuration.Record(ctx, seconds, attrs)
}
