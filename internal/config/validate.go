// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks that the configuration is complete and internally
// consistent. Field-level constraints come from struct tags; cross-field
// rules that tags cannot express are checked by hand.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Features.WorkStartHour >= c.Features.WorkEndHour {
		return fmt.Errorf("work_start_hour (%d) must be before work_end_hour (%d)",
			c.Features.WorkStartHour, c.Features.WorkEndHour)
	}

	// The selection tie-break depends on grid order, so the grid must not
	// contain duplicates that would make "first encountered" ambiguous.
	seen := make(map[int]struct{}, len(c.Detection.NeighborCandidates))
	for _, k := range c.Detection.NeighborCandidates {
		if _, dup := seen[k]; dup {
			return fmt.Errorf("neighbor_candidates contains duplicate value %d", k)
		}
		seen[k] = struct{}{}
	}

	// Below 3 anomalies a K=2 partition cannot satisfy the
	// at-least-3-points-per-cluster sizing rule.
	if c.Clustering.MinAnomalies < 3 {
		return fmt.Errorf("min_anomalies must be at least 3, got %d", c.Clustering.MinAnomalies)
	}

	return nil
}
