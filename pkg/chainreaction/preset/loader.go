package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is a preset together with its registry key, as written in preset files.
type Entry struct {
	Key    string `json:"key" yaml:"key"`
	Preset `yaml:",inline"`
}

// file is the top-level shape of a preset file.
type file struct {
	Presets []Entry `json:"presets" yaml:"presets"`
}

// FromFile loads preset entries from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return nil, fmt.Errorf("unsupported preset file extension: %s", ext)
	}
}

// FromYAML parses preset entries from YAML.
func FromYAML(data []byte) ([]Entry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return f.Presets, nil
}

// FromJSON parses preset entries from JSON.
func FromJSON(data []byte) ([]Entry, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return f.Presets, nil
}

// RegisterAll registers entries in order. It stops at the first invalid entry.
func RegisterAll(r *Registry, entries []Entry) error {
	for _, e := range entries {
		if err := r.Register(e.Key, e.Preset); err != nil {
			return err
		}
	}
	return nil
}
