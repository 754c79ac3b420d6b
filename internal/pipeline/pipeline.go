// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package pipeline orchestrates a full analysis run: ingest and clean the
// raw logs, build the per-track feature matrices, standardize them, score
// with the density outlier detector, cluster the flagged anomalies and
// write the interpretation report. Three tracks exist — tracker, staff and
// merged — and each runs the same stage sequence over its own schema.
//
// Every stage persists its output: tables and CSV exports for the data,
// JSON artifacts for fitted parameters. A run is reproducible from config
// alone; the only nondeterminism allowed in is the seeded clustering RNG.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/auditrail/auditrail/internal/artifact"
	"github.com/auditrail/auditrail/internal/config"
	"github.com/auditrail/auditrail/internal/features"
	"github.com/auditrail/auditrail/internal/ingest"
	"github.com/auditrail/auditrail/internal/interpret"
	"github.com/auditrail/auditrail/internal/kmeans"
	"github.com/auditrail/auditrail/internal/lof"
	"github.com/auditrail/auditrail/internal/logging"
	"github.com/auditrail/auditrail/internal/metrics"
	"github.com/auditrail/auditrail/internal/models"
	"github.com/auditrail/auditrail/internal/scale"
	"github.com/auditrail/auditrail/internal/store"
)

// Dataset track names accepted by Run.
const (
	DatasetTracker = "tracker"
	DatasetStaff   = "staff"
	DatasetMerged  = "merged"
)

// AllDatasets lists the tracks in execution order.
func AllDatasets() []string {
	return []string{DatasetTracker, DatasetStaff, DatasetMerged}
}

// DetectionArtifact is the JSON snapshot of a committed detection stage:
// the feature schema, the fitted standardizer and the grid-search outcome.
// Together with the clustering artifact it fully describes the fitted run.
type DetectionArtifact struct {
	Dataset      string       `json:"dataset"`
	RunID        string       `json:"run_id"`
	GeneratedAt  time.Time    `json:"generated_at"`
	FeatureNames []string     `json:"feature_names"`
	Scaler       *scale.Model `json:"scaler"`
	Detection    *lof.Result  `json:"detection"`
}

// ClusteringArtifact is the JSON snapshot of a committed clustering stage.
type ClusteringArtifact struct {
	Dataset     string             `json:"dataset"`
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Seed        int64              `json:"seed"`
	Model       *kmeans.Model      `json:"model"`
	Candidates  []kmeans.Candidate `json:"candidates"`
}

// Pipeline runs the analysis stages for one or more dataset tracks.
type Pipeline struct {
	cfg   *config.Config
	db    *store.Store
	runID string
}

// New creates a pipeline with a fresh run id.
func New(cfg *config.Config, db *store.Store) *Pipeline {
	return &Pipeline{cfg: cfg, db: db, runID: uuid.NewString()}
}

// RunID identifies this pipeline instance across its artifacts.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run executes the requested dataset tracks and writes the metrics
// textfile at the end. Tracks sharing a raw log share one ingest pass.
func (p *Pipeline) Run(ctx context.Context, datasets []string) error {
	need := map[string]bool{}
	for _, d := range datasets {
		switch d {
		case DatasetTracker, DatasetStaff, DatasetMerged:
			need[d] = true
		default:
			return fmt.Errorf("unknown dataset %q", d)
		}
	}
	if len(need) == 0 {
		return errors.New("no datasets requested")
	}

	for _, dir := range []string{p.cfg.Output.DataDir, p.cfg.Output.ModelsDir, p.cfg.Output.ReportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}

	logging.Info().
		Str("run_id", p.runID).
		Strs("datasets", datasets).
		Msg("Pipeline run starting")

	var (
		trackerClean []models.TrackerRecord
		staffClean   []models.StaffRecord
	)

	if need[DatasetTracker] || need[DatasetMerged] {
		var err error
		trackerClean, err = p.ingestTracker(ctx)
		if err != nil {
			return fmt.Errorf("tracker ingest: %w", err)
		}
	}
	if need[DatasetStaff] || need[DatasetMerged] {
		var err error
		staffClean, err = p.ingestStaff(ctx)
		if err != nil {
			return fmt.Errorf("staff ingest: %w", err)
		}
	}

	if need[DatasetTracker] {
		ds := features.BuildTracker(trackerClean, p.cfg.Features)
		if err := p.runTrack(ctx, DatasetTracker, ds, interpret.TrackerColumns()); err != nil {
			return fmt.Errorf("tracker track: %w", err)
		}
	}
	if need[DatasetStaff] {
		ds := features.BuildStaff(staffClean, p.cfg.Features)
		if err := p.runTrack(ctx, DatasetStaff, ds, interpret.StaffColumns()); err != nil {
			return fmt.Errorf("staff track: %w", err)
		}
	}
	if need[DatasetMerged] {
		events, err := p.mergeEvents(ctx, trackerClean, staffClean)
		if err != nil {
			return fmt.Errorf("merge: %w", err)
		}
		ds := features.BuildMerged(events, p.cfg.Features)
		if err := p.runTrack(ctx, DatasetMerged, ds, interpret.MergedColumns()); err != nil {
			return fmt.Errorf("merged track: %w", err)
		}
	}

	if err := metrics.WriteTextfile(p.cfg.Output.MetricsFile); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}

	logging.Info().Str("run_id", p.runID).Msg("Pipeline run complete")
	return nil
}

// ingestTracker loads, cleans and persists the tracker log.
func (p *Pipeline) ingestTracker(ctx context.Context) ([]models.TrackerRecord, error) {
	var cleaned []models.TrackerRecord
	err := p.timed(DatasetTracker, "ingest", func() error {
		records, loadStats, err := ingest.LoadTracker(p.cfg.Inputs.TrackerPath)
		if err != nil {
			return err
		}
		recordLoadStats(DatasetTracker, loadStats)

		var cleanStats ingest.CleanStats
		cleaned, cleanStats = ingest.CleanTracker(records, p.cfg.Features.IQRMultiplier)
		recordCleanStats(DatasetTracker, cleanStats)

		logging.Info().
			Int("loaded", loadStats.Loaded).
			Int("cleaned", len(cleaned)).
			Int("duplicates", cleanStats.Duplicates).
			Int("outliers", cleanStats.Outliers).
			Msg("Tracker log ingested")

		if err := p.db.SaveTrackerRecords(ctx, "tracker_cleaned", cleaned); err != nil {
			return err
		}
		return p.db.ExportCSV(ctx, "tracker_cleaned", p.dataPath("tracker_cleaned.csv"))
	})
	return cleaned, err
}

// ingestStaff loads, cleans and persists the staff login log.
func (p *Pipeline) ingestStaff(ctx context.Context) ([]models.StaffRecord, error) {
	var cleaned []models.StaffRecord
	err := p.timed(DatasetStaff, "ingest", func() error {
		records, loadStats, err := ingest.LoadStaff(p.cfg.Inputs.StaffPath)
		if err != nil {
			return err
		}
		recordLoadStats(DatasetStaff, loadStats)

		var cleanStats ingest.CleanStats
		cleaned, cleanStats = ingest.CleanStaff(records)
		recordCleanStats(DatasetStaff, cleanStats)

		logging.Info().
			Int("loaded", loadStats.Loaded).
			Int("cleaned", len(cleaned)).
			Int("duplicates", cleanStats.Duplicates).
			Msg("Staff log ingested")

		if err := p.db.SaveStaffRecords(ctx, "staff_cleaned", cleaned); err != nil {
			return err
		}
		return p.db.ExportCSV(ctx, "staff_cleaned", p.dataPath("staff_cleaned.csv"))
	})
	return cleaned, err
}

// mergeEvents unions the cleaned logs into one event stream and persists it.
func (p *Pipeline) mergeEvents(ctx context.Context, tracker []models.TrackerRecord, staff []models.StaffRecord) ([]models.MergedEvent, error) {
	var events []models.MergedEvent
	err := p.timed(DatasetMerged, "ingest", func() error {
		var cleanStats ingest.CleanStats
		events, cleanStats = ingest.Merge(tracker, staff)
		recordCleanStats(DatasetMerged, cleanStats)

		logging.Info().
			Int("events", len(events)).
			Int("duplicates", cleanStats.Duplicates).
			Msg("Activity streams merged")

		if err := p.db.SaveMergedEvents(ctx, "merged_cleaned", events); err != nil {
			return err
		}
		return p.db.ExportCSV(ctx, "merged_cleaned", p.dataPath("merged_cleaned.csv"))
	})
	return events, err
}

// runTrack runs featurize -> scale -> detect -> cluster -> report for one
// dataset track. The raw (unscaled) matrix feeds the cluster summaries;
// the standardized one feeds detection and clustering.
func (p *Pipeline) runTrack(ctx context.Context, dataset string, raw *features.Dataset, cols interpret.Columns) error {
	if err := p.timed(dataset, "features", func() error {
		if err := p.db.SaveDataset(ctx, dataset+"_features", raw); err != nil {
			return err
		}
		return p.db.ExportCSV(ctx, dataset+"_features", p.dataPath(dataset+"_features.csv"))
	}); err != nil {
		return fmt.Errorf("features stage: %w", err)
	}

	var (
		scaled *features.Dataset
		scaler *scale.Model
	)
	if err := p.timed(dataset, "scale", func() error {
		scaled, scaler = scale.FitTransform(raw)
		if err := scaler.Save(p.modelPath(dataset + "_scaler.json")); err != nil {
			return err
		}
		if err := p.db.SaveDataset(ctx, dataset+"_normalized", scaled); err != nil {
			return err
		}
		return p.db.ExportCSV(ctx, dataset+"_normalized", p.dataPath(dataset+"_normalized.csv"))
	}); err != nil {
		return fmt.Errorf("scale stage: %w", err)
	}

	var detection *lof.Result
	if err := p.timed(dataset, "detect", func() error {
		scorer := lof.NewScorer(lof.Config{
			Contamination:      p.cfg.Detection.Contamination,
			NeighborCandidates: p.cfg.Detection.NeighborCandidates,
		})
		res, err := scorer.Run(scaled.Rows)
		if err != nil {
			return err
		}
		detection = res

		metrics.AnomaliesDetected.WithLabelValues(dataset).Set(float64(res.AnomalyCount))
		metrics.AnomalyPercent.WithLabelValues(dataset).Set(res.AnomalyPercent)
		metrics.ChosenNeighborhood.WithLabelValues(dataset).Set(float64(res.ChosenK))
		logging.Info().
			Str("dataset", dataset).
			Int("chosen_k", res.ChosenK).
			Int("anomalies", res.AnomalyCount).
			Float64("anomaly_percent", res.AnomalyPercent).
			Msg("Outlier detection committed")

		art := DetectionArtifact{
			Dataset:      dataset,
			RunID:        p.runID,
			GeneratedAt:  time.Now().UTC(),
			FeatureNames: raw.Names,
			Scaler:       scaler,
			Detection:    res,
		}
		if err := artifact.WriteJSON(p.modelPath(dataset+"_detection.json"), art); err != nil {
			return err
		}

		flags := make([]int, len(res.IsAnomaly))
		for i, a := range res.IsAnomaly {
			if a {
				flags[i] = 1
			}
		}
		if err := p.db.SaveDataset(ctx, dataset+"_scored", raw,
			store.Extra{Name: "anomaly_score", Floats: res.Scores},
			store.Extra{Name: "is_anomaly", Ints: flags},
		); err != nil {
			return err
		}
		return p.db.ExportCSV(ctx, dataset+"_scored", p.dataPath(dataset+"_scored.csv"))
	}); err != nil {
		return fmt.Errorf("detect stage: %w", err)
	}

	anomalyIdx := detection.AnomalyIndices()
	assignments := make([]int, raw.Len())
	for i := range assignments {
		assignments[i] = kmeans.UnclusteredID
	}

	var clustering *kmeans.Result
	if err := p.timed(dataset, "cluster", func() error {
		scaledAnomalies := scaled.Select(anomalyIdx)
		res, err := kmeans.Search(scaledAnomalies.Rows, kmeans.Config{
			MinAnomalies:  p.cfg.Clustering.MinAnomalies,
			MaxClusters:   p.cfg.Clustering.MaxClusters,
			NumInit:       p.cfg.Clustering.NumInit,
			MaxIterations: p.cfg.Clustering.MaxIterations,
			Seed:          p.cfg.Clustering.Seed,
		})
		var insufficient *kmeans.InsufficientDataError
		if errors.As(err, &insufficient) {
			// Scored output stays valid; the report just carries no clusters.
			logging.Warn().
				Str("dataset", dataset).
				Int("anomalies", insufficient.Records).
				Int("min", insufficient.Min).
				Msg("Too few anomalies to cluster")
			return nil
		}
		if err != nil {
			return err
		}
		clustering = res

		for pos, rowIdx := range anomalyIdx {
			assignments[rowIdx] = res.Assignments[pos]
		}

		metrics.ClustersFound.WithLabelValues(dataset).Set(float64(res.Model.K))
		metrics.ClusterSilhouette.WithLabelValues(dataset).Set(res.Model.Silhouette)
		logging.Info().
			Str("dataset", dataset).
			Int("clusters", res.Model.K).
			Float64("silhouette", res.Model.Silhouette).
			Msg("Anomaly clustering committed")

		art := ClusteringArtifact{
			Dataset:     dataset,
			RunID:       p.runID,
			GeneratedAt: time.Now().UTC(),
			Seed:        p.cfg.Clustering.Seed,
			Model:       res.Model,
			Candidates:  res.Candidates,
		}
		return artifact.WriteJSON(p.modelPath(dataset+"_clustering.json"), art)
	}); err != nil {
		return fmt.Errorf("cluster stage: %w", err)
	}

	if err := p.timed(dataset, "report", func() error {
		flags := make([]int, len(detection.IsAnomaly))
		for i, a := range detection.IsAnomaly {
			if a {
				flags[i] = 1
			}
		}
		if err := p.db.SaveDataset(ctx, dataset+"_clustered", raw,
			store.Extra{Name: "anomaly_score", Floats: detection.Scores},
			store.Extra{Name: "is_anomaly", Ints: flags},
			store.Extra{Name: "cluster", Ints: assignments},
		); err != nil {
			return err
		}
		if err := p.db.ExportCSV(ctx, dataset+"_clustered", p.dataPath(dataset+"_clustered.csv")); err != nil {
			return err
		}

		report := &interpret.Report{
			Dataset:          dataset,
			RunID:            p.runID,
			GeneratedAt:      time.Now().UTC(),
			TotalRecords:     raw.Len(),
			TotalAnomalies:   detection.AnomalyCount,
			AnomalyPercent:   detection.AnomalyPercent,
			NeighborhoodSize: detection.ChosenK,
			Contamination:    detection.Contamination,
		}
		if clustering != nil {
			report.NumClusters = clustering.Model.K
			report.Silhouette = clustering.Model.Silhouette

			rawAnomalies := raw.Select(anomalyIdx)
			scores := make([]float64, len(anomalyIdx))
			for pos, rowIdx := range anomalyIdx {
				scores[pos] = detection.Scores[rowIdx]
			}
			clusters, err := interpret.Summarize(rawAnomalies, scores, clustering.Assignments,
				clustering.Model.K, cols, p.cfg.Clustering.TopUsers)
			if err != nil {
				return err
			}
			report.Clusters = clusters
		}
		return report.Save(p.reportPath(dataset + "_report.json"))
	}); err != nil {
		return fmt.Errorf("report stage: %w", err)
	}

	return nil
}

// timed runs one pipeline stage, recording duration and failures.
func (p *Pipeline) timed(dataset, stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(dataset, stage).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PipelineErrors.WithLabelValues(dataset, stage).Inc()
	}
	return err
}

func (p *Pipeline) dataPath(name string) string {
	return filepath.Join(p.cfg.Output.DataDir, name)
}

func (p *Pipeline) modelPath(name string) string {
	return filepath.Join(p.cfg.Output.ModelsDir, name)
}

func (p *Pipeline) reportPath(name string) string {
	return filepath.Join(p.cfg.Output.ReportsDir, name)
}

func recordLoadStats(dataset string, s ingest.LoadStats) {
	metrics.RecordsLoaded.WithLabelValues(dataset).Add(float64(s.Loaded))
	metrics.RecordsDropped.WithLabelValues(dataset, "malformed").Add(float64(s.Malformed))
	metrics.RecordsDropped.WithLabelValues(dataset, "missing").Add(float64(s.MissingCritical))
	metrics.RecordsDropped.WithLabelValues(dataset, "bad_timestamp").Add(float64(s.InvalidTimestamps))
}

func recordCleanStats(dataset string, s ingest.CleanStats) {
	metrics.RecordsDropped.WithLabelValues(dataset, "duplicate").Add(float64(s.Duplicates))
	metrics.RecordsDropped.WithLabelValues(dataset, "outlier").Add(float64(s.Outliers))
}
