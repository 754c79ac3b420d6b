// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package interpret

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/auditrail/auditrail/internal/features"
	"github.com/auditrail/auditrail/internal/models"
)

// anomalySet builds a merged-track anomaly dataset with two clear groups:
// cluster 0 is night/outside-hours activity by user 1, cluster 1 is
// daytime weekday activity spread over users 2 and 3.
func anomalySet() (*features.Dataset, []float64, []int) {
	names := features.MergedFeatureNames()
	ds := &features.Dataset{Kind: features.KindMerged, Names: names}

	hourIdx := 0
	outsideIdx := 4
	weekendIdx := 5
	freqIdx := 9

	add := func(user, hour int, outside, weekend float64, freq float64, src models.Source) {
		row := make([]float64, len(names))
		row[hourIdx] = float64(hour)
		row[outsideIdx] = outside
		row[weekendIdx] = weekend
		row[freqIdx] = freq
		ds.Rows = append(ds.Rows, row)
		ds.Meta = append(ds.Meta, features.RowMeta{
			UserID:    user,
			Timestamp: time.Date(2026, 1, 5, hour, 0, 0, 0, time.UTC),
			Source:    src,
		})
	}

	// Cluster 0: four night events, user 1 dominant, high score.
	add(1, 23, 1, 0, 40, models.SourceTracker)
	add(1, 23, 1, 0, 40, models.SourceTracker)
	add(1, 22, 1, 0, 40, models.SourceTracker)
	add(4, 2, 1, 1, 40, models.SourceStaff)
	// Cluster 1: four daytime events, low score.
	add(2, 10, 0, 0, 5, models.SourceStaff)
	add(2, 10, 0, 0, 5, models.SourceStaff)
	add(3, 11, 0, 0, 5, models.SourceStaff)
	add(3, 14, 0, 0, 5, models.SourceStaff)

	scores := []float64{3.0, 3.1, 2.9, 3.2, 1.1, 1.0, 1.2, 1.1}
	assign := []int{0, 0, 0, 0, 1, 1, 1, 1}
	return ds, scores, assign
}

func TestSummarize(t *testing.T) {
	ds, scores, assign := anomalySet()

	summaries, err := Summarize(ds, scores, assign, 2, MergedColumns(), 3)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	night := summaries[0]
	if night.Size != 4 || night.Percentage != 50 {
		t.Errorf("cluster 0 size/pct = %d/%v, want 4/50", night.Size, night.Percentage)
	}
	if night.OutsideHoursPct != 100 {
		t.Errorf("cluster 0 outside-hours pct = %v, want 100", night.OutsideHoursPct)
	}
	if night.PeakHour != 23 {
		t.Errorf("cluster 0 peak hour = %d, want 23", night.PeakHour)
	}
	if night.DominantValue != string(models.SourceTracker) {
		t.Errorf("cluster 0 dominant value = %q, want tracker", night.DominantValue)
	}
	if len(night.TopUsers) == 0 || night.TopUsers[0].UserID != 1 || night.TopUsers[0].Count != 3 {
		t.Errorf("cluster 0 top users = %+v, want user 1 with 3", night.TopUsers)
	}

	day := summaries[1]
	if day.WeekendPct != 0 || day.OutsideHoursPct != 0 {
		t.Errorf("cluster 1 pcts = weekend %v outside %v, want 0/0", day.WeekendPct, day.OutsideHoursPct)
	}
	if day.DominantValue != string(models.SourceStaff) {
		t.Errorf("cluster 1 dominant value = %q, want staff", day.DominantValue)
	}
}

func TestSummarizeLabels(t *testing.T) {
	ds, scores, assign := anomalySet()

	summaries, err := Summarize(ds, scores, assign, 2, MergedColumns(), 3)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}

	night := summaries[0].Label
	for _, want := range []string{"Outside Work Hours Activity", "High Frequency", "Strong Anomaly"} {
		if !strings.Contains(night, want) {
			t.Errorf("cluster 0 label %q missing %q", night, want)
		}
	}
	if strings.Contains(night, "Weekend Activity") {
		t.Errorf("cluster 0 label %q wrongly includes weekend", night)
	}

	day := summaries[1].Label
	if !strings.Contains(day, "Low Frequency") {
		t.Errorf("cluster 1 label %q missing Low Frequency", day)
	}
	if strings.Contains(day, "Strong Anomaly") {
		t.Errorf("cluster 1 label %q wrongly marked strong", day)
	}
}

func TestSummarizeInputMismatch(t *testing.T) {
	ds, scores, assign := anomalySet()
	if _, err := Summarize(ds, scores[:3], assign, 2, MergedColumns(), 3); err == nil {
		t.Error("Summarize accepted mismatched score length")
	}

	var schemaErr *features.SchemaError
	bad := MergedColumns()
	bad.Frequency = "no_such_column"
	_, err := Summarize(ds, scores, assign, 2, bad, 3)
	if !errors.As(err, &schemaErr) {
		t.Errorf("Summarize with a bad column returned %v, want *SchemaError", err)
	}
}

func TestTopUsersTieBreak(t *testing.T) {
	ds, scores, assign := anomalySet()
	// Cluster 1 has users 2 and 3 with two events each: tie breaks to the
	// smaller user id.
	summaries, err := Summarize(ds, scores, assign, 2, MergedColumns(), 1)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	day := summaries[1]
	if len(day.TopUsers) != 1 || day.TopUsers[0].UserID != 2 {
		t.Errorf("cluster 1 top users = %+v, want just user 2", day.TopUsers)
	}
}

func TestReportSaveLoad(t *testing.T) {
	ds, scores, assign := anomalySet()
	summaries, err := Summarize(ds, scores, assign, 2, MergedColumns(), 3)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}

	r := &Report{
		Dataset:          "merged",
		RunID:            "11111111-2222-3333-4444-555555555555",
		GeneratedAt:      time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		TotalRecords:     160,
		TotalAnomalies:   8,
		AnomalyPercent:   5,
		NeighborhoodSize: 10,
		Contamination:    0.05,
		NumClusters:      2,
		Silhouette:       0.82,
		Clusters:         summaries,
	}

	path := filepath.Join(t.TempDir(), "report_merged.json")
	if err := r.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport returned error: %v", err)
	}
	if loaded.Dataset != "merged" || loaded.NumClusters != 2 || len(loaded.Clusters) != 2 {
		t.Errorf("loaded report = %+v", loaded)
	}
	if loaded.Clusters[0].Label != summaries[0].Label {
		t.Errorf("label round trip: %q vs %q", loaded.Clusters[0].Label, summaries[0].Label)
	}
}
