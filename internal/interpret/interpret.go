// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package interpret turns a clustered anomaly set into per-cluster
// summaries with heuristic labels, and assembles the final report object.
// The labels are explanatory only: nothing downstream computes on them.
package interpret

import (
	"fmt"
	"sort"
	"strings"

	"github.com/auditrail/auditrail/internal/features"
	"github.com/auditrail/auditrail/internal/stats"
)

// Columns names the raw (unscaled) feature columns the summarizer reads.
// OutsideHours may be empty for tracks without that flag.
type Columns struct {
	Hour         string
	OutsideHours string
	Weekend      string
	Frequency    string
}

// TrackerColumns, StaffColumns and MergedColumns bind the summarizer to
// each track's feature schema.
func TrackerColumns() Columns {
	return Columns{Hour: "hour", OutsideHours: "is_outside_work_hours", Weekend: "is_weekend", Frequency: "user_frequency"}
}

func StaffColumns() Columns {
	return Columns{Hour: "hour", OutsideHours: "is_after_work_hours", Weekend: "is_weekend", Frequency: "login_frequency"}
}

func MergedColumns() Columns {
	return Columns{Hour: "hour", OutsideHours: "is_outside_work_hours", Weekend: "is_weekend", Frequency: "user_frequency"}
}

// UserCount is one entry of a cluster's top-user list.
type UserCount struct {
	UserID int `json:"user_id"`
	Count  int `json:"count"`
}

// ClusterSummary describes one cluster of anomalies.
type ClusterSummary struct {
	ClusterID       int         `json:"cluster_id"`
	Label           string      `json:"label"`
	Size            int         `json:"size"`
	Percentage      float64     `json:"percentage"`
	AvgHour         float64     `json:"avg_hour"`
	PeakHour        int         `json:"peak_hour"`
	WeekendPct      float64     `json:"weekend_pct"`
	OutsideHoursPct float64     `json:"outside_hours_pct"`
	AvgFrequency    float64     `json:"avg_frequency"`
	AvgScore        float64     `json:"avg_score"`
	DominantValue   string      `json:"dominant_value,omitempty"`
	TopUsers        []UserCount `json:"top_users"`
}

// Summarize computes one summary per cluster id in [0, k). The dataset
// must hold the raw (unscaled) anomaly rows; scores and assignments run
// parallel to its rows.
func Summarize(ds *features.Dataset, scores []float64, assign []int, k int, cols Columns, topUsers int) ([]ClusterSummary, error) {
	n := ds.Len()
	if len(scores) != n || len(assign) != n {
		return nil, fmt.Errorf("summary inputs disagree: %d rows, %d scores, %d assignments", n, len(scores), len(assign))
	}

	hour, err := ds.Column(cols.Hour)
	if err != nil {
		return nil, err
	}
	weekend, err := ds.Column(cols.Weekend)
	if err != nil {
		return nil, err
	}
	freq, err := ds.Column(cols.Frequency)
	if err != nil {
		return nil, err
	}
	var outside []float64
	if cols.OutsideHours != "" {
		if outside, err = ds.Column(cols.OutsideHours); err != nil {
			return nil, err
		}
	}

	// Median baselines are taken over the whole anomaly population.
	medianFreq := stats.Median(freq)
	medianScore := stats.Median(scores)

	summaries := make([]ClusterSummary, 0, k)
	for c := 0; c < k; c++ {
		var (
			idx        []int
			hours      []float64
			hoursInt   []int
			scoreVals  []float64
			freqVals   []float64
			weekendCnt int
			outsideCnt int
		)
		for i := 0; i < n; i++ {
			if assign[i] != c {
				continue
			}
			idx = append(idx, i)
			hours = append(hours, hour[i])
			hoursInt = append(hoursInt, int(hour[i]))
			scoreVals = append(scoreVals, scores[i])
			freqVals = append(freqVals, freq[i])
			if weekend[i] == 1 {
				weekendCnt++
			}
			if outside != nil && outside[i] == 1 {
				outsideCnt++
			}
		}
		if len(idx) == 0 {
			summaries = append(summaries, ClusterSummary{ClusterID: c, Label: "Empty Cluster"})
			continue
		}

		size := len(idx)
		s := ClusterSummary{
			ClusterID:       c,
			Size:            size,
			Percentage:      float64(size) / float64(n) * 100,
			AvgHour:         stats.Mean(hours),
			WeekendPct:      float64(weekendCnt) / float64(size) * 100,
			OutsideHoursPct: float64(outsideCnt) / float64(size) * 100,
			AvgFrequency:    stats.Mean(freqVals),
			AvgScore:        stats.Mean(scoreVals),
			DominantValue:   dominantValue(ds, idx),
			TopUsers:        topUserCounts(ds, idx, topUsers),
		}
		if peak, ok := stats.ModeInt(hoursInt); ok {
			s.PeakHour = peak
		}
		s.Label = label(s, medianFreq, medianScore)
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// label derives the descriptive cluster label from threshold rules over
// the summary statistics.
func label(s ClusterSummary, medianFreq, medianScore float64) string {
	var parts []string
	if s.OutsideHoursPct > 50 {
		parts = append(parts, "Outside Work Hours Activity")
	}
	if s.WeekendPct > 50 {
		parts = append(parts, "Weekend Activity")
	}
	if s.AvgFrequency > medianFreq {
		parts = append(parts, "High Frequency")
	} else {
		parts = append(parts, "Low Frequency")
	}
	if s.AvgScore > medianScore {
		parts = append(parts, "Strong Anomaly")
	}
	if len(parts) == 0 {
		parts = append(parts, "General Anomaly")
	}
	return strings.Join(parts, " - ")
}

// dominantValue returns the statistical mode of the cluster's categorical
// column: operation type for tracker rows, staff name for staff rows,
// origin source for merged rows.
func dominantValue(ds *features.Dataset, idx []int) string {
	values := make([]string, 0, len(idx))
	for _, i := range idx {
		m := ds.Meta[i]
		switch ds.Kind {
		case features.KindTracker:
			values = append(values, string(m.QueryType))
		case features.KindStaff:
			values = append(values, m.Name)
		case features.KindMerged:
			values = append(values, string(m.Source))
		}
	}
	mode, ok := stats.ModeString(values)
	if !ok {
		return ""
	}
	return mode
}

// topUserCounts returns the cluster's most frequent user ids, count
// descending with user id ascending on ties.
func topUserCounts(ds *features.Dataset, idx []int, topN int) []UserCount {
	counts := make(map[int]int)
	for _, i := range idx {
		counts[ds.Meta[i].UserID]++
	}
	out := make([]UserCount, 0, len(counts))
	for user, count := range counts {
		out = append(out, UserCount{UserID: user, Count: count})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].UserID < out[b].UserID
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
