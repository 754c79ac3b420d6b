// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package cli builds the auditrail command tree.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/auditrail/auditrail/internal/config"
	"github.com/auditrail/auditrail/internal/logging"
	"github.com/auditrail/auditrail/internal/pipeline"
	"github.com/auditrail/auditrail/internal/store"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// NewRootCommand returns the auditrail root command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "auditrail",
		Short: "Behavioral anomaly detection for database and login activity logs",
		Long: "Auditrail analyzes database-query tracker logs and staff login logs offline:\n" +
			"it cleans the raw activity, extracts behavioral features, flags outliers with a\n" +
			"density-based detector, clusters the flagged records and writes a JSON report\n" +
			"describing each anomaly pattern.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		cfgPath  string
		datasets []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the analysis pipeline over the configured logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			logging.Init(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := store.Open(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			return pipeline.New(cfg, db).Run(ctx, expandDatasets(datasets))
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringSliceVarP(&datasets, "dataset", "d", []string{"all"},
		"datasets to analyze: tracker, staff, merged or all")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// expandDatasets resolves the "all" shorthand. Unknown names pass through
// so the pipeline reports them with its own error.
func expandDatasets(datasets []string) []string {
	for _, d := range datasets {
		if d == "all" {
			return pipeline.AllDatasets()
		}
	}
	return datasets
}
