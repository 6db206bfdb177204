/*
Package config loads orchestrator settings from YAML or JSON.

# Basic Usage

	settings, err := config.LoadSettings("chainreaction.yaml")
	if err != nil {
	    log.Fatal(err)
	}

A settings file only needs the keys it changes:

	model: gemini-flash-latest
	pacing: 250ms
	default_preset: STORY
	presets_file: ./presets.yaml
	store:
	  driver: sqlite
	  path: ./presets.db

Unknown keys are rejected so typos surface at load time.

# Lower-Level Access

FromFile, FromYAML and FromJSON return a Config wrapping the raw map.
Config.Decode copies it into any mapstructure-tagged struct.
*/
package config
