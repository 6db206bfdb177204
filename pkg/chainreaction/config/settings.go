package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Settings configures an orchestrator and its generation backend.
type Settings struct {
	// Generation backend
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKeyEnv         string        `mapstructure:"api_key_env"`
	SystemInstruction string        `mapstructure:"system_instruction"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxOutputTokens   int           `mapstructure:"max_output_tokens"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`

	// Chain execution
	Pacing        time.Duration `mapstructure:"pacing"`
	DefaultPreset string        `mapstructure:"default_preset"`
	PresetsFile   string        `mapstructure:"presets_file"`

	// Ambient
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Metrics   bool   `mapstructure:"metrics"`
	Tracing   bool   `mapstructure:"tracing"`

	Store StoreSettings `mapstructure:"store"`
}

// StoreSettings selects where authored presets are persisted.
type StoreSettings struct {
	// Driver is "", "memory", "sqlite" or "redis". Empty disables the store.
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Store drivers.
const (
	DriverNone   = ""
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Model:           "gemini-flash-latest",
		BaseURL:         "https://generativelanguage.googleapis.com",
		APIKeyEnv:       "GEMINI_API_KEY",
		Temperature:     0.7,
		MaxOutputTokens: 2000,
		RequestTimeout:  60 * time.Second,
		Pacing:          600 * time.Millisecond,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Validate checks settings that would otherwise fail late.
func (s Settings) Validate() error {
	if s.Temperature < 0 {
		return fmt.Errorf("temperature must not be negative: %v", s.Temperature)
	}
	if s.MaxOutputTokens <= 0 {
		return fmt.Errorf("max_output_tokens must be positive: %d", s.MaxOutputTokens)
	}
	if s.Pacing < 0 {
		return fmt.Errorf("pacing must not be negative: %s", s.Pacing)
	}
	if _, err := s.SlogLevel(); err != nil {
		return err
	}
	switch s.Store.Driver {
	case DriverNone, DriverMemory:
	case DriverSQLite:
		if s.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case DriverRedis:
		if s.Store.Addr == "" {
			return fmt.Errorf("store.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown store driver: %q", s.Store.Driver)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (s Settings) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", s.LogLevel, err)
	}
	return level, nil
}

// DecodeSettings decodes c over DefaultSettings and validates the result.
func DecodeSettings(c Config) (Settings, error) {
	s := DefaultSettings()
	if err := c.Decode(&s); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadSettings reads settings from a YAML or JSON file.
func LoadSettings(path string) (Settings, error) {
	c, err := FromFile(path)
	if err != nil {
		return Settings{}, err
	}
	return DecodeSettings(c)
}
