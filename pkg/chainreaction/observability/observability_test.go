package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// jsonLogger returns a debug-level JSON logger writing into buf.
func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return newLogger(buf, slog.LevelDebug, FormatJSON)
}

// lastEntry decodes the last JSON log line in buf.
func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestLogHelpers_NilLoggerSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		LogRunStart(nil, "r", "p", 3)
		LogRunSkipped(nil, "busy")
		LogRunComplete(nil, "r", 1, 1, 0)
		LogRunAbandoned(nil, "r", 1)
		LogNodeStart(nil, "n", 1)
		LogNodeComplete(nil, "n", 1, 1)
		LogNodeError(nil, "n", "transport", errors.New("x"))
		LogStaleResult(nil, "r", "n")
		LogReset(nil, "p", false)
		LogPresetSwitch(nil, "a", "b")
	})
}

func TestLogRunStart(t *testing.T) {
	var buf bytes.Buffer
	LogRunStart(jsonLogger(&buf), "run-1", "DEBATE", 3)

	entry := lastEntry(t, &buf)
	assert.Equal(t, "chain run starting", entry["msg"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "DEBATE", entry["preset"])
	assert.Equal(t, float64(3), entry["nodes"])
}

func TestLogNodeError_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	LogNodeError(jsonLogger(&buf), "2", "transport", errors.New("CONNECTION FAILURE: refused"))

	entry := lastEntry(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "CONNECTION FAILURE: refused", entry["err"])
	assert.NotContains(t, entry, "error")
	assert.Equal(t, "transport", entry["kind"])
}

func TestLogRunComplete(t *testing.T) {
	var buf bytes.Buffer
	LogRunComplete(jsonLogger(&buf), "run-1", 12, 2, 1)

	entry := lastEntry(t, &buf)
	assert.Equal(t, float64(2), entry["completed"])
	assert.Equal(t, float64(1), entry["failed"])
}

func TestNewLogger_TextLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelInfo, FormatText)

	LogNodeStart(logger, "1", 1) // debug, filtered
	assert.Empty(t, buf.String())

	LogReset(logger, "DEBATE", true)
	assert.Contains(t, buf.String(), "chain reset")
	assert.Contains(t, buf.String(), "was_running=true")
}

func TestNewNop(t *testing.T) {
	assert.NotPanics(t, func() { NewNop().Error("ignored") })
}

func TestTimedOperation(t *testing.T) {
	elapsed := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, elapsed(), 5*time.Millisecond)
}

// setupMetricsTest installs a manual-reader meter provider.
func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		_ = provider.Shutdown(context.Background())
	})
	return reader
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestOtelMetrics(t *testing.T) {
	reader := setupMetricsTest(t)

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordNodeExecution(ctx, "1", 10*time.Millisecond, "")
	m.RecordNodeExecution(ctx, "2", 20*time.Millisecond, "transport")
	m.RecordChainRun(ctx, "DEBATE", 1, 50*time.Millisecond)
	m.RecordSkippedRun(ctx, "busy")
	m.RecordSkippedRun(ctx, "short_topic")
	m.RecordStaleResult(ctx, "3")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(2), sumOf(t, findMetric(&rm, "chainreaction.node.executions")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(&rm, "chainreaction.node.errors")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(&rm, "chainreaction.chain.runs")))
	assert.Equal(t, int64(2), sumOf(t, findMetric(&rm, "chainreaction.chain.skipped")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(&rm, "chainreaction.node.stale_results")))
	assert.NotNil(t, findMetric(&rm, "chainreaction.node.latency_ms"))
	assert.NotNil(t, findMetric(&rm, "chainreaction.chain.latency_ms"))
}

func TestNewMetricsRecorder_NotNoop(t *testing.T) {
	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)
	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop)
}

// setupTracingTest installs an in-memory span exporter.
func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("chainreaction")
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestSpanManager(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	ctx, runSpan := sm.StartRunSpan(context.Background(), "DEBATE", "run-1")
	_, nodeSpan := sm.StartNodeSpan(ctx, "2", 2)
	sm.EndSpanWithError(nodeSpan, errors.New("CONNECTION FAILURE: refused"))
	sm.EndSpanWithError(runSpan, nil)
	sm.EndSpanWithError(nil, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	node := spans[0]
	assert.Equal(t, "chainreaction.node.2", node.Name)
	assert.Equal(t, codes.Error, node.Status.Code)
	assert.Contains(t, node.Attributes, attribute.Int("node.position", 2))

	run := spans[1]
	assert.Equal(t, "chainreaction.run", run.Name)
	assert.Equal(t, codes.Ok, run.Status.Code)
	assert.Contains(t, run.Attributes, attribute.String("preset", "DEBATE"))
	assert.Equal(t, run.SpanContext.SpanID(), node.Parent.SpanID())
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var m MetricsRecorder = NoopMetrics{}
	var s SpanManager = NoopSpanManager{}

	assert.NotPanics(t, func() {
		m.RecordNodeExecution(ctx, "1", time.Second, "backend")
		m.RecordChainRun(ctx, "p", 0, time.Second)
		m.RecordSkippedRun(ctx, "busy")
		m.RecordStaleResult(ctx, "1")

		runCtx, span := s.StartRunSpan(ctx, "p", "r")
		assert.Equal(t, ctx, runCtx)
		_, nodeSpan := s.StartNodeSpan(runCtx, "1", 1)
		s.EndSpanWithError(nodeSpan, errors.New("x"))
		s.EndSpanWithError(span, nil)
	})
}
