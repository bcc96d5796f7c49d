package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records nodeflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeRun records one node lifecycle run with its duration and error status.
	RecordNodeRun(ctx context.Context, node string, duration time.Duration, err error)

	// RecordFlowRun records a completed flow traversal.
	RecordFlowRun(ctx context.Context, flow string, steps int, duration time.Duration, err error)

	// RecordRetry records a failed exec attempt that will be retried.
	RecordRetry(ctx context.Context, node string)

	// RecordFallback records a fallback invocation after exhausted retries.
	RecordFallback(ctx context.Context, node string)

	// RecordBatch records the size of a batch dispatched by a node or batch flow.
	RecordBatch(ctx context.Context, node string, items int, parallel bool)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	nodeRuns    metric.Int64Counter
	nodeLatency metric.Float64Histogram
	nodeErrors  metric.Int64Counter
	flowRuns    metric.Int64Counter
	flowLatency metric.Float64Histogram
	flowSteps   metric.Int64Histogram
	retries     metric.Int64Counter
	fallbacks   metric.Int64Counter
	batchItems  metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily builds the shared OTel instruments.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("nodeflow")
	m := &otelMetrics{}
	var err error

	if m.nodeRuns, err = meter.Int64Counter("nodeflow.node.runs",
		metric.WithDescription("Number of node lifecycle runs"),
	); err != nil {
		return nil, err
	}
	if m.nodeLatency, err = meter.Float64Histogram("nodeflow.node.latency_ms",
		metric.WithDescription("Node lifecycle latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.nodeErrors, err = meter.Int64Counter("nodeflow.node.errors",
		metric.WithDescription("Number of node runs that returned an error"),
	); err != nil {
		return nil, err
	}
	if m.flowRuns, err = meter.Int64Counter("nodeflow.flow.runs",
		metric.WithDescription("Number of flow traversals"),
	); err != nil {
		return nil, err
	}
	if m.flowLatency, err = meter.Float64Histogram("nodeflow.flow.latency_ms",
		metric.WithDescription("Flow traversal latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.flowSteps, err = meter.Int64Histogram("nodeflow.flow.steps",
		metric.WithDescription("Nodes executed per flow traversal"),
	); err != nil {
		return nil, err
	}
	if m.retries, err = meter.Int64Counter("nodeflow.exec.retries",
		metric.WithDescription("Number of retried exec attempts"),
	); err != nil {
		return nil, err
	}
	if m.fallbacks, err = meter.Int64Counter("nodeflow.exec.fallbacks",
		metric.WithDescription("Number of fallback invocations"),
	); err != nil {
		return nil, err
	}
	if m.batchItems, err = meter.Int64Histogram("nodeflow.batch.items",
		metric.WithDescription("Items dispatched per batch"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel meter
// provider. If instrument creation fails it logs a warning and returns NoopMetrics.
//
// Configure the provider first:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordNodeRun(ctx context.Context, node string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("node", node))
	m.nodeRuns.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordFlowRun(ctx context.Context, flow string, steps int, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.Bool("success", err == nil),
	)
	m.flowRuns.Add(ctx, 1, attrs)
	m.flowLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	m.flowSteps.Record(ctx, int64(steps), attrs)
}

func (m *otelMetrics) RecordRetry(ctx context.Context, node string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("node", node)))
}

func (m *otelMetrics) RecordFallback(ctx context.Context, node string) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("node", node)))
}

func (m *otelMetrics) RecordBatch(ctx context.Context, node string, items int, parallel bool) {
	m.batchItems.Record(ctx, int64(items), metric.WithAttributes(
		attribute.String("node", node),
		attribute.Bool("parallel", parallel),
	))
}
