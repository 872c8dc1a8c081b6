package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/randalmurphal/vapiflow"

// MetricsRecorder records conversion metrics.
// Use NewMetricsRecorder for OpenTelemetry or NoopMetrics when disabled.
type MetricsRecorder interface {
	// RecordConversion records a finished conversion.
	RecordConversion(ctx context.Context, mode string, success bool, duration time.Duration)

	// RecordNodes records emitted target nodes of one role.
	RecordNodes(ctx context.Context, role string, count int)

	// RecordRouting records a compiled branch point.
	RecordRouting(ctx context.Context, width int)
}

type otelMetrics struct {
	runs    metric.Int64Counter
	latency metric.Float64Histogram
	nodes   metric.Int64Counter
	width   metric.Int64Histogram
}

func newOtelMetrics(mp metric.MeterProvider) (*otelMetrics, error) {
	meter := mp.Meter(instrumentationName)

	runs, err := meter.Int64Counter("vapiflow.conversion.runs",
		metric.WithDescription("Number of conversions"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("vapiflow.conversion.latency_ms",
		metric.WithDescription("Conversion latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	nodes, err := meter.Int64Counter("vapiflow.nodes.emitted",
		metric.WithDescription("Number of target nodes emitted"),
	)
	if err != nil {
		return nil, err
	}
	width, err := meter.Int64Histogram("vapiflow.routing.width",
		metric.WithDescription("Branch width of compiled routing subgraphs"),
	)
	if err != nil {
		return nil, err
	}
	return &otelMetrics{runs: runs, latency: latency, nodes: nodes, width: width}, nil
}

// NewMetricsRecorder returns a recorder on the global meter provider.
// If the instruments cannot be created it logs and returns NoopMetrics.
func NewMetricsRecorder() MetricsRecorder {
	return NewMetricsRecorderFor(otel.GetMeterProvider())
}

// NewMetricsRecorderFor returns a recorder on mp.
func NewMetricsRecorderFor(mp metric.MeterProvider) MetricsRecorder {
	m, err := newOtelMetrics(mp)
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordConversion(ctx context.Context, mode string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Bool("success", success),
	)
	m.runs.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (m *otelMetrics) RecordNodes(ctx context.Context, role string, count int) {
	if count == 0 {
		return
	}
	m.nodes.Add(ctx, int64(count), metric.WithAttributes(attribute.String("role", role)))
}

func (m *otelMetrics) RecordRouting(ctx context.Context, width int) {
	m.width.Record(ctx, int64(width))
}
