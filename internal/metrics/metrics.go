// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package metrics instruments the batch pipeline with Prometheus
// collectors. Auditrail is a short-lived process, so instead of serving a
// scrape endpoint the final values are written to a textfile that the
// node_exporter textfile collector (or a human) can pick up.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var (
	// Ingest Metrics
	RecordsLoaded = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditrail_records_loaded_total",
			Help: "Raw log lines successfully parsed, by dataset",
		},
		[]string{"dataset"},
	)

	RecordsDropped = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditrail_records_dropped_total",
			Help: "Log lines dropped during loading and cleaning",
		},
		[]string{"dataset", "reason"}, // "malformed", "missing", "bad_timestamp", "duplicate", "outlier"
	)

	// Detection Metrics
	AnomaliesDetected = promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "auditrail_anomalies_detected",
			Help: "Records flagged anomalous in the last run, by dataset",
		},
		[]string{"dataset"},
	)

	AnomalyPercent = promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "auditrail_anomaly_percent",
			Help: "Share of records flagged anomalous in the last run",
		},
		[]string{"dataset"},
	)

	ChosenNeighborhood = promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "auditrail_lof_neighborhood_size",
			Help: "Neighborhood size selected by the grid search",
		},
		[]string{"dataset"},
	)

	// Clustering Metrics
	ClustersFound = promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "auditrail_clusters_found",
			Help: "Number of anomaly clusters in the last run, by dataset",
		},
		[]string{"dataset"},
	)

	ClusterSilhouette = promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "auditrail_cluster_silhouette",
			Help: "Mean silhouette of the selected clustering",
		},
		[]string{"dataset"},
	)

	// Pipeline Metrics
	StageDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auditrail_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dataset", "stage"}, // "ingest", "features", "scale", "detect", "cluster", "report"
	)

	PipelineErrors = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditrail_pipeline_errors_total",
			Help: "Pipeline stage failures",
		},
		[]string{"dataset", "stage"},
	)
)

// WriteTextfile dumps the current metric values in the Prometheus text
// exposition format. An empty path disables the dump.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, registry)
}
