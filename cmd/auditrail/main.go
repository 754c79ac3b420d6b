// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package main is the entry point for the auditrail batch analyzer.
//
// Auditrail reads two activity logs offline — a database-query tracker log
// and a staff login log — then cleans them, extracts behavioral features,
// flags outliers with a density-based detector, clusters the flagged
// records and writes a JSON interpretation report per dataset track.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (AUDITRAIL_* keys)
//   - Config file (--config path, YAML)
//   - Built-in defaults
//
// # Example Usage
//
//	auditrail run                        # all three tracks, default config
//	auditrail run --dataset merged       # merged track only
//	auditrail run -c auditrail.yaml      # explicit config file
package main

import (
	"fmt"
	"os"

	"github.com/auditrail/auditrail/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
