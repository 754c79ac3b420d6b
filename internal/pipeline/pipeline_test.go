// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/auditrail/auditrail/internal/config"
	"github.com/auditrail/auditrail/internal/interpret"
	"github.com/auditrail/auditrail/internal/kmeans"
	"github.com/auditrail/auditrail/internal/store"
)

// readClusteredExport parses a *_clustered.csv export into (is_anomaly,
// cluster) pairs.
func readClusteredExport(t *testing.T, path string) (flags, clusters []int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
	if len(rows) < 2 {
		t.Fatalf("%s has no data rows", path)
	}

	flagCol, clusterCol := -1, -1
	for i, name := range rows[0] {
		switch name {
		case "is_anomaly":
			flagCol = i
		case "cluster":
			clusterCol = i
		}
	}
	if flagCol < 0 || clusterCol < 0 {
		t.Fatalf("%s header missing is_anomaly/cluster: %v", path, rows[0])
	}

	for _, row := range rows[1:] {
		flag, err := strconv.Atoi(row[flagCol])
		if err != nil {
			t.Fatalf("bad is_anomaly %q: %v", row[flagCol], err)
		}
		cluster, err := strconv.Atoi(row[clusterCol])
		if err != nil {
			t.Fatalf("bad cluster %q: %v", row[clusterCol], err)
		}
		flags = append(flags, flag)
		clusters = append(clusters, cluster)
	}
	return flags, clusters
}

// writeFixtures produces two synthetic logs: routine weekday activity for
// six staff users plus a handful of small-hours deletions by user 99.
func writeFixtures(t *testing.T, dir string) (trackerPath, staffPath string) {
	t.Helper()

	weekdays := []string{
		"2026-01-05", "2026-01-06", "2026-01-07", "2026-01-08", "2026-01-09",
		"2026-01-12", "2026-01-13", "2026-01-14", "2026-01-15", "2026-01-16",
	}

	var tracker, staff strings.Builder
	for _, day := range weekdays {
		for user := 1; user <= 6; user++ {
			fmt.Fprintf(&tracker, "%s %02d:15:00\tSELECT * FROM accounts WHERE id = %d\t%d\n",
				day, 8+user, user, user)
			fmt.Fprintf(&tracker, "%s %02d:45:00\tUPDATE accounts SET touched = 1\t%d\n",
				day, 9+user, user)
			fmt.Fprintf(&staff, "%d\t%s\t%02d:0%d:00\tuser%d\n", user, day, 8, user, user)
		}
	}
	for _, day := range weekdays[:4] {
		fmt.Fprintf(&tracker, "%s 03:10:00\tDELETE FROM audit_log\t99\n", day)
		fmt.Fprintf(&staff, "99\t%s\t03:00:00\tnightowl\n", day)
	}

	trackerPath = filepath.Join(dir, "tracker.tsv")
	staffPath = filepath.Join(dir, "staff.tsv")
	if err := os.WriteFile(trackerPath, []byte(tracker.String()), 0o644); err != nil {
		t.Fatalf("writing tracker fixture: %v", err)
	}
	if err := os.WriteFile(staffPath, []byte(staff.String()), 0o644); err != nil {
		t.Fatalf("writing staff fixture: %v", err)
	}
	return trackerPath, staffPath
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	trackerPath, staffPath := writeFixtures(t, root)

	cfg := config.Default()
	cfg.Inputs.TrackerPath = trackerPath
	cfg.Inputs.StaffPath = staffPath
	cfg.Output.DataDir = filepath.Join(root, "data")
	cfg.Output.ModelsDir = filepath.Join(root, "models")
	cfg.Output.ReportsDir = filepath.Join(root, "reports")
	cfg.Output.MetricsFile = filepath.Join(root, "auditrail.prom")
	cfg.Database.Threads = 1
	return cfg
}

func TestRunAllDatasets(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer db.Close()

	p := New(cfg, db)
	if err := p.Run(ctx, AllDatasets()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, dataset := range AllDatasets() {
		for _, stage := range []string{"cleaned", "features", "normalized", "scored", "clustered"} {
			path := filepath.Join(cfg.Output.DataDir, dataset+"_"+stage+".csv")
			if _, err := os.Stat(path); err != nil {
				t.Errorf("missing export %s: %v", path, err)
			}
		}
		for _, model := range []string{"scaler", "detection"} {
			path := filepath.Join(cfg.Output.ModelsDir, dataset+"_"+model+".json")
			if _, err := os.Stat(path); err != nil {
				t.Errorf("missing model artifact %s: %v", path, err)
			}
		}

		report, err := interpret.LoadReport(filepath.Join(cfg.Output.ReportsDir, dataset+"_report.json"))
		if err != nil {
			t.Fatalf("LoadReport(%s) error = %v", dataset, err)
		}
		if report.Dataset != dataset {
			t.Errorf("report.Dataset = %q, want %q", report.Dataset, dataset)
		}
		if report.RunID != p.RunID() {
			t.Errorf("report.RunID = %q, want %q", report.RunID, p.RunID())
		}
		if report.TotalRecords == 0 {
			t.Errorf("%s report.TotalRecords = 0", dataset)
		}
		if report.TotalAnomalies == 0 {
			t.Errorf("%s report.TotalAnomalies = 0", dataset)
		}
		if report.AnomalyPercent <= 0 || report.AnomalyPercent >= 100 {
			t.Errorf("%s report.AnomalyPercent = %v", dataset, report.AnomalyPercent)
		}
		if report.NeighborhoodSize == 0 {
			t.Errorf("%s report.NeighborhoodSize = 0", dataset)
		}

		// Non-anomalous rows must carry the unclustered sentinel; flagged
		// rows land in a real cluster whenever clustering committed.
		flags, clusters := readClusteredExport(t, filepath.Join(cfg.Output.DataDir, dataset+"_clustered.csv"))
		for i, flag := range flags {
			if flag == 0 && clusters[i] != kmeans.UnclusteredID {
				t.Errorf("%s row %d: is_anomaly=0 but cluster=%d", dataset, i, clusters[i])
			}
			if flag == 1 && report.NumClusters > 0 &&
				(clusters[i] < 0 || clusters[i] >= report.NumClusters) {
				t.Errorf("%s row %d: cluster=%d outside [0,%d)", dataset, i, clusters[i], report.NumClusters)
			}
		}
	}

	if _, err := os.Stat(cfg.Output.MetricsFile); err != nil {
		t.Errorf("missing metrics textfile: %v", err)
	}
}

func TestRunSingleDataset(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer db.Close()

	if err := New(cfg, db).Run(ctx, []string{DatasetStaff}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.Output.ReportsDir, "staff_report.json")); err != nil {
		t.Errorf("missing staff report: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.DataDir, "tracker_cleaned.csv")); err == nil {
		t.Error("tracker export written for a staff-only run")
	}
}

// TestRunContinuesWhenTooFewAnomaliesToCluster drives the tracker track
// with 40 routine rows: the 5% contamination cut flags at most 2 of them,
// below the clustering floor of 3, so clustering is skipped while the
// scored artifacts still commit.
func TestRunContinuesWhenTooFewAnomaliesToCluster(t *testing.T) {
	root := t.TempDir()

	weekdays := []string{
		"2026-01-05", "2026-01-06", "2026-01-07", "2026-01-08", "2026-01-09",
		"2026-01-12", "2026-01-13", "2026-01-14", "2026-01-15", "2026-01-16",
	}
	var tracker strings.Builder
	for day, date := range weekdays {
		for user := 1; user <= 4; user++ {
			fmt.Fprintf(&tracker, "%s %02d:%02d:00\tSELECT * FROM accounts WHERE id = %d\t%d\n",
				date, 8+user, day*5, user, user)
		}
	}
	trackerPath := filepath.Join(root, "tracker.tsv")
	if err := os.WriteFile(trackerPath, []byte(tracker.String()), 0o644); err != nil {
		t.Fatalf("writing tracker fixture: %v", err)
	}

	cfg := config.Default()
	cfg.Inputs.TrackerPath = trackerPath
	cfg.Output.DataDir = filepath.Join(root, "data")
	cfg.Output.ModelsDir = filepath.Join(root, "models")
	cfg.Output.ReportsDir = filepath.Join(root, "reports")
	cfg.Database.Threads = 1

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer db.Close()

	if err := New(cfg, db).Run(ctx, []string{DatasetTracker}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Scored artifacts commit despite the skipped clustering.
	for _, name := range []string{"tracker_scored.csv", "tracker_clustered.csv"} {
		if _, err := os.Stat(filepath.Join(cfg.Output.DataDir, name)); err != nil {
			t.Errorf("missing export %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.ModelsDir, "tracker_detection.json")); err != nil {
		t.Errorf("missing detection artifact: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.ModelsDir, "tracker_clustering.json")); err == nil {
		t.Error("clustering artifact written for a skipped clustering")
	}

	report, err := interpret.LoadReport(filepath.Join(cfg.Output.ReportsDir, "tracker_report.json"))
	if err != nil {
		t.Fatalf("LoadReport() error = %v", err)
	}
	if report.TotalAnomalies >= cfg.Clustering.MinAnomalies {
		t.Errorf("report.TotalAnomalies = %d, want < %d", report.TotalAnomalies, cfg.Clustering.MinAnomalies)
	}
	if report.NumClusters != 0 {
		t.Errorf("report.NumClusters = %d, want 0", report.NumClusters)
	}
	if len(report.Clusters) != 0 {
		t.Errorf("report.Clusters = %v, want empty", report.Clusters)
	}

	// With no clustering, every row keeps the sentinel.
	_, clusters := readClusteredExport(t, filepath.Join(cfg.Output.DataDir, "tracker_clustered.csv"))
	if len(clusters) != 40 {
		t.Fatalf("clustered export has %d rows, want 40", len(clusters))
	}
	for i, cluster := range clusters {
		if cluster != kmeans.UnclusteredID {
			t.Errorf("row %d cluster = %d, want %d", i, cluster, kmeans.UnclusteredID)
		}
	}
}

func TestRunRejectsUnknownDataset(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer db.Close()

	if err := New(cfg, db).Run(ctx, []string{"sessions"}); err == nil {
		t.Fatal("Run() error = nil for unknown dataset")
	}
}
