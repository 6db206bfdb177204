package chainreaction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/chainreaction/pkg/chainreaction/config"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/generation"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/observability"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/preset"
	"github.com/randalmurphal/chainreaction/pkg/chainreaction/presetstore"
)

// NewFromSettings builds an orchestrator backed by the Gemini client.
//
// The registry starts with the built-in presets, then the presets file, then
// everything in the configured preset store, later entries replacing earlier
// ones with the same key. opts are applied after the options derived from s.
// Call Close on the result to release the store.
func NewFromSettings(ctx context.Context, s config.Settings, opts ...Option) (*Orchestrator, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	level, _ := s.SlogLevel()
	logger := observability.NewLogger(level, s.LogFormat)

	reg := preset.Builtin()
	if s.PresetsFile != "" {
		entries, err := preset.FromFile(s.PresetsFile)
		if err != nil {
			return nil, err
		}
		if err := preset.RegisterAll(reg, entries); err != nil {
			return nil, err
		}
	}

	store, err := OpenStore(s.Store)
	if err != nil {
		return nil, err
	}
	if store != nil {
		n, err := preset.LoadStore(ctx, store, reg)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("load presets from %s store: %w", s.Store.Driver, err)
		}
		logger.Debug("presets loaded from store",
			slog.String("driver", s.Store.Driver),
			slog.Int("count", n),
		)
	}

	port := generation.NewGemini(geminiOptions(s, logger)...)

	base := []Option{
		WithLogger(logger),
		WithPacing(s.Pacing),
		WithMetrics(s.Metrics),
		WithTracing(s.Tracing),
		WithDefaultPreset(s.DefaultPreset),
	}
	if store != nil {
		base = append(base, WithStore(store))
	}

	o, err := New(reg, port, append(base, opts...)...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	return o, nil
}

// OpenStore opens the preset store selected by s. It returns nil for the
// empty driver.
func OpenStore(s config.StoreSettings) (presetstore.Store, error) {
	switch s.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverMemory:
		return presetstore.NewMemoryStore(), nil
	case config.DriverSQLite:
		store, err := presetstore.NewSQLiteStore(s.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverRedis:
		var opts []presetstore.RedisOption
		if s.Prefix != "" {
			opts = append(opts, presetstore.WithPrefix(s.Prefix))
		}
		return presetstore.NewRedisStore(s.Addr, s.Password, s.DB, opts...), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %q", s.Driver)
	}
}

func geminiOptions(s config.Settings, logger *slog.Logger) []generation.GeminiOption {
	opts := []generation.GeminiOption{
		generation.WithGeminiLogger(logger),
		generation.WithTemperature(s.Temperature),
		generation.WithMaxOutputTokens(s.MaxOutputTokens),
		generation.WithTimeout(s.RequestTimeout),
	}
	if s.BaseURL != "" {
		opts = append(opts, generation.WithBaseURL(s.BaseURL))
	}
	if s.Model != "" {
		opts = append(opts, generation.WithModel(s.Model))
	}
	if s.APIKeyEnv != "" {
		opts = append(opts, generation.WithAPIKeyEnv(s.APIKeyEnv))
	}
	if s.SystemInstruction != "" {
		opts = append(opts, generation.WithSystemInstruction(s.SystemInstruction))
	}
	return opts
}
