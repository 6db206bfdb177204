package chainreaction

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/observability"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/presetstore"
)

// DefaultPacing is the pause after each node so transitions stay observable.
const DefaultPacing = 600 * time.Millisecond

// orchestratorConfig holds orchestrator configuration.
type orchestratorConfig struct {
	logger         *slog.Logger
	pacing         time.Duration
	defaultPreset  string
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
	observer       func(Snapshot)
	newRunID       func() string
	store          presetstore.Store
}

// defaultConfig returns the default orchestrator configuration.
func defaultConfig() orchestratorConfig {
	return orchestratorConfig{
		logger:   slog.Default(),
		pacing:   DefaultPacing,
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		newRunID: uuid.NewString,
	}
}

// Option configures an Orchestrator.
type Option func(*orchestratorConfig)

// WithLogger sets the logger for run and node events.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *orchestratorConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPacing sets the pause after each node. Zero disables it.
// Default: 600ms
func WithPacing(d time.Duration) Option {
	return func(c *orchestratorConfig) {
		if d >= 0 {
			c.pacing = d
		}
	}
}

// WithDefaultPreset selects the preset loaded into the live chain by New.
// Default: the first key registered.
func WithDefaultPreset(key string) Option {
	return func(c *orchestratorConfig) {
		c.defaultPreset = key
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter provider.
//
// Example:
//
//	o, err := chainreaction.New(reg, port, chainreaction.WithMetrics(true))
func WithMetrics(enabled bool) Option {
	return func(c *orchestratorConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder sets a custom metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *orchestratorConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans for runs and nodes through the
// global tracer provider.
func WithTracing(enabled bool) Option {
	return func(c *orchestratorConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithObserver registers fn to receive a snapshot after every state change.
// fn runs synchronously on the goroutine that made the change, outside the
// orchestrator lock.
func WithObserver(fn func(Snapshot)) Option {
	return func(c *orchestratorConfig) {
		c.observer = fn
	}
}

// WithRunIDGenerator overrides how run ids are created.
// Default: uuid.NewString
func WithRunIDGenerator(fn func() string) Option {
	return func(c *orchestratorConfig) {
		if fn != nil {
			c.newRunID = fn
		}
	}
}

// WithStore attaches a preset store. SavePreset writes to it and Close closes it.
func WithStore(store presetstore.Store) Option {
	return func(c *orchestratorConfig) {
		c.store = store
	}
}
