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

// MetricsRecorder records chain metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records a node execution. errorKind is empty on success.
	RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, errorKind string)

	// RecordChainRun records a finished chain run.
	RecordChainRun(ctx context.Context, presetKey string, failed int, duration time.Duration)

	// RecordSkippedRun records a RunChain call that was ignored.
	RecordSkippedRun(ctx context.Context, reason string)

	// RecordStaleResult records a generation result dropped after a reset or switch.
	RecordStaleResult(ctx context.Context, nodeID string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	chainRuns      metric.Int64Counter
	chainLatency   metric.Float64Histogram
	skippedRuns    metric.Int64Counter
	staleResults   metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the OTel instruments.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("chainreaction")

	nodeExecutions, err := meter.Int64Counter("chainreaction.node.executions",
		metric.WithDescription("Number of node executions"),
	)
	if err != nil {
		return nil, err
	}

	nodeLatency, err := meter.Float64Histogram("chainreaction.node.latency_ms",
		metric.WithDescription("Node generation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodeErrors, err := meter.Int64Counter("chainreaction.node.errors",
		metric.WithDescription("Number of nodes that ended in error"),
	)
	if err != nil {
		return nil, err
	}

	chainRuns, err := meter.Int64Counter("chainreaction.chain.runs",
		metric.WithDescription("Number of chain runs"),
	)
	if err != nil {
		return nil, err
	}

	chainLatency, err := meter.Float64Histogram("chainreaction.chain.latency_ms",
		metric.WithDescription("Chain run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	skippedRuns, err := meter.Int64Counter("chainreaction.chain.skipped",
		metric.WithDescription("Number of ignored run requests"),
	)
	if err != nil {
		return nil, err
	}

	staleResults, err := meter.Int64Counter("chainreaction.node.stale_results",
		metric.WithDescription("Number of generation results dropped after a reset or preset switch"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		nodeExecutions: nodeExecutions,
		nodeLatency:    nodeLatency,
		nodeErrors:     nodeErrors,
		chainRuns:      chainRuns,
		chainLatency:   chainLatency,
		skippedRuns:    skippedRuns,
		staleResults:   staleResults,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before the first call:
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

// RecordNodeExecution records a node execution.
func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, errorKind string) {
	attrs := metric.WithAttributes(attribute.String("node_id", nodeID))

	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)

	if errorKind != "" {
		m.nodeErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("node_id", nodeID),
			attribute.String("error_kind", errorKind),
		))
	}
}

// RecordChainRun records a chain run.
func (m *otelMetrics) RecordChainRun(ctx context.Context, presetKey string, failed int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("preset", presetKey),
		attribute.Bool("success", failed == 0),
	)
	m.chainRuns.Add(ctx, 1, attrs)
	m.chainLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordSkippedRun records an ignored run request.
func (m *otelMetrics) RecordSkippedRun(ctx context.Context, reason string) {
	m.skippedRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordStaleResult records a dropped generation result.
func (m *otelMetrics) RecordStaleResult(ctx context.Context, nodeID string) {
	m.staleResults.Add(ctx, 1, metric.WithAttributes(attribute.String("node_id", nodeID)))
}
