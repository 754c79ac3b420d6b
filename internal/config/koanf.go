// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"auditrail.yaml",
	"auditrail.yml",
	"/etc/auditrail/config.yaml",
	"/etc/auditrail/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "AUDITRAIL_CONFIG"

// Load loads configuration with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if present)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile loads configuration using the given config file path. An empty
// path skips the file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Env vars arrive as strings; the neighborhood grid expects ints.
	if err := processIntSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// intSliceConfigPaths defines which config paths are parsed as
// comma-separated int slices when they arrive from the environment.
var intSliceConfigPaths = []string{
	"detection.neighbor_candidates",
}

// processIntSliceFields converts comma-separated env strings to int slices.
func processIntSliceFields(k *koanf.Koanf) error {
	for _, path := range intSliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		parsed := make([]int, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			n, err := strconv.Atoi(p)
			if err != nil {
				return fmt.Errorf("invalid value %q in %s: %w", p, path, err)
			}
			parsed = append(parsed, n)
		}
		if len(parsed) > 0 {
			if err := k.Set(path, parsed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envPrefix namespaces every Auditrail environment variable. Generic names
// like DATA_DIR would otherwise collide with unrelated environment noise.
const envPrefix = "AUDITRAIL_"

// envTransformFunc maps AUDITRAIL_* environment variable names to koanf
// config paths. Unprefixed or unmapped variables return empty string and
// are skipped.
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		// Input mappings
		"tracker_log_path": "inputs.tracker_path",
		"staff_log_path":   "inputs.staff_path",

		// Output mappings
		"data_dir":     "output.data_dir",
		"models_dir":   "output.models_dir",
		"reports_dir":  "output.reports_dir",
		"metrics_file": "output.metrics_file",

		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Feature policy mappings
		"work_start_hour":          "features.work_start_hour",
		"work_end_hour":            "features.work_end_hour",
		"late_login_hour":          "features.late_login_hour",
		"tracker_night_start_hour": "features.tracker_night_start_hour",
		"tracker_night_end_hour":   "features.tracker_night_end_hour",
		"merged_night_end_hour":    "features.merged_night_end_hour",
		"iqr_multiplier":           "features.iqr_multiplier",

		// Detection mappings
		"contamination":       "detection.contamination",
		"neighbor_candidates": "detection.neighbor_candidates",

		// Clustering mappings
		"min_anomalies":   "clustering.min_anomalies",
		"max_clusters":    "clustering.max_clusters",
		"kmeans_n_init":   "clustering.num_init",
		"kmeans_max_iter": "clustering.max_iterations",
		"random_seed":     "clustering.seed",
		"top_users":       "clustering.top_users",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
	}

	upper := strings.ToUpper(key)
	if !strings.HasPrefix(upper, envPrefix) {
		return ""
	}
	if mapped, ok := envMappings[strings.ToLower(strings.TrimPrefix(upper, envPrefix))]; ok {
		return mapped
	}
	return ""
}
