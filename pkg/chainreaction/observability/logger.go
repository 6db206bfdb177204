// Package observability provides structured logging, metrics, and tracing
// for chain runs.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Log formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger creates a logger writing to stderr at the given level.
// The "error" key is shortened to "err".
func NewLogger(level slog.Level, format string) *slog.Logger {
	return newLogger(os.Stderr, level, format)
}

func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LogRunStart logs the start of a chain run.
func LogRunStart(logger *slog.Logger, runID, presetKey string, nodes int) {
	if logger == nil {
		return
	}
	logger.Info("chain run starting",
		slog.String("run_id", runID),
		slog.String("preset", presetKey),
		slog.Int("nodes", nodes),
	)
}

// LogRunSkipped logs a RunChain call that was ignored.
func LogRunSkipped(logger *slog.Logger, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("chain run skipped",
		slog.String("reason", reason),
	)
}

// LogRunComplete logs the end of a chain run.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, completed, failed int) {
	if logger == nil {
		return
	}
	logger.Info("chain run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("completed", completed),
		slog.Int("failed", failed),
	)
}

// LogRunAbandoned logs a run that stopped because the chain was reset or replaced.
func LogRunAbandoned(logger *slog.Logger, runID string, position int) {
	if logger == nil {
		return
	}
	logger.Info("chain run abandoned",
		slog.String("run_id", runID),
		slog.Int("position", position),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string, position int) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
		slog.Int("position", position),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64, outputLen int) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("output_len", outputLen),
	)
}

// LogNodeError logs a node whose generation failed.
func LogNodeError(logger *slog.Logger, nodeID, kind string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("node failed",
		slog.String("node_id", nodeID),
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
}

// LogStaleResult logs a generation result dropped because the chain changed.
func LogStaleResult(logger *slog.Logger, runID, nodeID string) {
	if logger == nil {
		return
	}
	logger.Info("stale generation result dropped",
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
	)
}

// LogReset logs a chain reset.
func LogReset(logger *slog.Logger, presetKey string, wasRunning bool) {
	if logger == nil {
		return
	}
	logger.Info("chain reset",
		slog.String("preset", presetKey),
		slog.Bool("was_running", wasRunning),
	)
}

// LogPresetSwitch logs a preset switch.
func LogPresetSwitch(logger *slog.Logger, from, to string) {
	if logger == nil {
		return
	}
	logger.Info("preset switched",
		slog.String("from", from),
		slog.String("to", to),
	)
}

// TimedOperation starts a clock. The returned func reports the time elapsed
// since TimedOperation was called.
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// LogInertReference logs a {{NODE_k}} token that can never resolve because
// position k does not run before the node that holds it.
func LogInertReference(logger *slog.Logger, presetKey, nodeID string, position int) {
	if logger == nil {
		return
	}
	logger.Warn("inert node reference",
		slog.String("preset", presetKey),
		slog.String("node_id", nodeID),
		slog.Int("position", position),
	)
}
