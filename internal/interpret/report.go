// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package interpret

import (
	"time"

	"github.com/auditrail/auditrail/internal/artifact"
)

// Report is the final interpretation artifact for one dataset track: the
// committed model parameters plus per-cluster summaries. Downstream
// consumers (dashboards, report renderers) read only this and the stage
// configs.
type Report struct {
	Dataset          string           `json:"dataset"`
	RunID            string           `json:"run_id"`
	GeneratedAt      time.Time        `json:"generated_at"`
	TotalRecords     int              `json:"total_records"`
	TotalAnomalies   int              `json:"total_anomalies"`
	AnomalyPercent   float64          `json:"anomaly_percent"`
	NeighborhoodSize int              `json:"neighborhood_size"`
	Contamination    float64          `json:"contamination"`
	NumClusters      int              `json:"num_clusters"`
	Silhouette       float64          `json:"silhouette"`
	Clusters         []ClusterSummary `json:"clusters"`
}

// Save writes the report atomically as JSON.
func (r *Report) Save(path string) error {
	return artifact.WriteJSON(path, r)
}

// LoadReport reads a previously saved report.
func LoadReport(path string) (*Report, error) {
	r := &Report{}
	if err := artifact.ReadJSON(path, r); err != nil {
		return nil, err
	}
	return r, nil
}
