package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// configFileName is the main configuration file loaded from the config
// directory. It is optional; built-in defaults apply when absent.
const configFileName = "kgee.yaml"

// Initialize loads, merges, validates, and returns ready-to-use
// configuration. This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load kgee.yaml from configDir (optional)
//  2. Expand environment variables
//  3. Parse YAML into the user Config
//  4. Merge user values over built-in defaults
//  5. Validate the merged configuration
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	log.Info("Configuration initialized",
		"pipeline_stages", len(cfg.Extraction.Pipeline),
		"cascade_ranks", len(cfg.Extraction.Cascade),
		"llm_providers", len(cfg.LLM.Providers),
		"ner_first_pipeline", cfg.Features.NERFirstPipeline())

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	builtin := GetBuiltinConfig()
	builtin.configDir = configDir

	path := filepath.Join(configDir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("No user configuration found, using built-in defaults", "path", path)
			return builtin, nil
		}
		return nil, NewLoadError(configFileName, err)
	}

	data = ExpandEnv(data)

	var user Config
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, NewLoadError(configFileName, fmt.Errorf("%w: %w", ErrInvalidYAML, err))
	}

	// User values override built-in defaults. Lists (cascade, pipeline)
	// replace wholesale rather than merging element-wise.
	merged := builtin
	if err := mergo.Merge(merged, &user, mergo.WithOverride); err != nil {
		return nil, NewLoadError(configFileName, err)
	}
	merged.configDir = configDir

	return merged, nil
}
