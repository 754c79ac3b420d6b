// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package config holds all Auditrail configuration, loaded with Koanf v2 in
// three layers: built-in defaults, an optional YAML config file, and
// environment variables (highest priority).
//
// Every policy constant of the pipeline lives here — work-hours boundaries,
// night-shift windows, contamination target, neighborhood and cluster-count
// grids, random seeds. Changing a policy is a one-line config change, never a
// code edit.
//
// Config is immutable after Load() and safe for concurrent reads.
package config

// Config holds all application configuration.
type Config struct {
	Inputs     InputsConfig     `koanf:"inputs"`
	Output     OutputConfig     `koanf:"output"`
	Database   DatabaseConfig   `koanf:"database"`
	Features   FeaturesConfig   `koanf:"features"`
	Detection  DetectionConfig  `koanf:"detection"`
	Clustering ClusteringConfig `koanf:"clustering"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// InputsConfig locates the raw activity logs.
type InputsConfig struct {
	// TrackerPath is the tab-separated database-query tracker log
	// (columns: timestamp, query_info, user_id; no header row).
	TrackerPath string `koanf:"tracker_path" validate:"required"`

	// StaffPath is the tab-separated staff login log
	// (columns: user_id, date, timestamp, name; no header row).
	StaffPath string `koanf:"staff_path" validate:"required"`
}

// OutputConfig controls where stage artifacts are written.
type OutputConfig struct {
	// DataDir receives per-stage CSV exports (cleaned, features, normalized,
	// scored, clustered).
	DataDir string `koanf:"data_dir" validate:"required"`

	// ModelsDir receives fitted model parameters and stage configs as JSON.
	ModelsDir string `koanf:"models_dir" validate:"required"`

	// ReportsDir receives the final interpretation report.
	ReportsDir string `koanf:"reports_dir" validate:"required"`

	// MetricsFile, when set, receives run metrics in Prometheus text format
	// (textfile-collector pattern for batch jobs). Empty disables it.
	MetricsFile string `koanf:"metrics_file"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Empty string runs in-memory, which is
	// the default for one-shot batch runs.
	Path string `koanf:"path"`

	// MaxMemory limits DuckDB memory usage (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads sets DuckDB worker threads. 0 = runtime.NumCPU().
	Threads int `koanf:"threads" validate:"gte=0"`
}

// FeaturesConfig holds the temporal policy constants used by the feature
// builder. These are fixed policy, not learned parameters.
type FeaturesConfig struct {
	// WorkStartHour and WorkEndHour bound the working day; hour < start or
	// hour >= end is outside work hours. The 18:30 close rounds up to 19.
	WorkStartHour int `koanf:"work_start_hour" validate:"gte=0,lte=23"`
	WorkEndHour   int `koanf:"work_end_hour" validate:"gte=0,lte=24"`

	// LateLoginHour marks a staff login at or after this hour as late.
	LateLoginHour int `koanf:"late_login_hour" validate:"gte=0,lte=23"`

	// TrackerNightStartHour/TrackerNightEndHour define the per-source night
	// window: hour >= start OR hour < end (wraps midnight, 21:00-06:00).
	TrackerNightStartHour int `koanf:"tracker_night_start_hour" validate:"gte=0,lte=23"`
	TrackerNightEndHour   int `koanf:"tracker_night_end_hour" validate:"gte=0,lte=23"`

	// MergedNightEndHour defines the merged-dataset night window: hour < end
	// (00:00-06:00 only). This deliberately differs from the per-source
	// window and the two must stay independently configurable.
	MergedNightEndHour int `koanf:"merged_night_end_hour" validate:"gte=0,lte=23"`

	// IQRMultiplier is the whisker multiplier for the query-length outlier
	// trim during tracker cleaning.
	IQRMultiplier float64 `koanf:"iqr_multiplier" validate:"gt=0"`
}

// DetectionConfig holds the outlier-scorer parameters.
type DetectionConfig struct {
	// Contamination is the assumed anomalous fraction of the dataset, used
	// for the score threshold. Fixed modeling assumption, not a verified rate.
	Contamination float64 `koanf:"contamination" validate:"gt=0,lt=1"`

	// NeighborCandidates is the ordered neighborhood-size grid. Order
	// matters: ties in the selection rule go to the earlier candidate.
	NeighborCandidates []int `koanf:"neighbor_candidates" validate:"min=1,dive,gt=0"`
}

// ClusteringConfig holds the cluster-engine parameters.
type ClusteringConfig struct {
	// MinAnomalies is the floor below which clustering is refused.
	MinAnomalies int `koanf:"min_anomalies" validate:"gte=2"`

	// MaxClusters caps the candidate cluster-count range.
	MaxClusters int `koanf:"max_clusters" validate:"gte=2"`

	// NumInit is the number of random k-means++ restarts per candidate K.
	NumInit int `koanf:"num_init" validate:"gte=1"`

	// MaxIterations bounds Lloyd iterations per fit.
	MaxIterations int `koanf:"max_iterations" validate:"gte=1"`

	// Seed makes runs reproducible: identical input and seed yield identical
	// partitions.
	Seed int64 `koanf:"seed"`

	// TopUsers is how many top user identifiers each cluster summary keeps.
	TopUsers int `koanf:"top_users" validate:"gte=1"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Default returns a Config with all default values, without touching the
// config file or environment. Useful for tests and programmatic callers.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Inputs: InputsConfig{
			TrackerPath: "data/raw/tracker.tsv",
			StaffPath:   "data/raw/staff.tsv",
		},
		Output: OutputConfig{
			DataDir:     "data",
			ModelsDir:   "models",
			ReportsDir:  "reports",
			MetricsFile: "",
		},
		Database: DatabaseConfig{
			Path:      "", // in-memory by default
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Features: FeaturesConfig{
			WorkStartHour:         8,
			WorkEndHour:           19,
			LateLoginHour:         10,
			TrackerNightStartHour: 21,
			TrackerNightEndHour:   6,
			MergedNightEndHour:    6,
			IQRMultiplier:         1.5,
		},
		Detection: DetectionConfig{
			Contamination:      0.05,
			NeighborCandidates: []int{5, 10, 15, 20, 25, 30},
		},
		Clustering: ClusteringConfig{
			MinAnomalies:  3,
			MaxClusters:   10,
			NumInit:       10,
			MaxIterations: 300,
			Seed:          42,
			TopUsers:      3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
