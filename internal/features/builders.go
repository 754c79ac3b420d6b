// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package features

import (
	"strings"

	"github.com/auditrail/auditrail/internal/config"
	"github.com/auditrail/auditrail/internal/logging"
	"github.com/auditrail/auditrail/internal/models"
)

// TrackerFeatureNames is the tracker track's column order: 7 temporal, 5
// one-hot operation, 4 behavioral.
func TrackerFeatureNames() []string {
	names := []string{
		"hour", "day_of_week", "month", "day_of_month",
		"is_outside_work_hours", "is_weekend", "night_shift",
	}
	for _, op := range models.KnownOps {
		names = append(names, "op_"+strings.ToLower(string(op)))
	}
	return append(names,
		"user_frequency", "op_diversity", "modification_ratio", "access_hour_std")
}

// StaffFeatureNames is the staff track's column order: 8 temporal, 3
// behavioral.
func StaffFeatureNames() []string {
	return []string{
		"hour", "day_of_week", "month", "day_of_month",
		"is_early_login", "is_late_login", "is_after_work_hours", "is_weekend",
		"login_frequency", "login_hour_std", "weekend_ratio",
	}
}

// MergedFeatureNames is the merged track's column order: 7 temporal, 2
// source one-hot, 5 behavioral.
func MergedFeatureNames() []string {
	return []string{
		"hour", "day_of_week", "month", "day_of_month",
		"is_outside_work_hours", "is_weekend", "night_shift",
		"source_tracker", "source_staff",
		"user_frequency", "user_source_frequency",
		"access_hour_std", "weekend_ratio", "outside_hours_ratio",
	}
}

// BuildTracker featurizes cleaned tracker records. The night-shift window
// wraps midnight: hour >= start OR hour < end.
func BuildTracker(records []models.TrackerRecord, cfg config.FeaturesConfig) *Dataset {
	type agg struct {
		count int
		ops   map[models.OpType]struct{}
		mods  int
		hours []float64
	}
	aggs := make(map[int]*agg)
	for _, r := range records {
		h, _, _, _ := decompose(r.Timestamp)
		a := aggs[r.UserID]
		if a == nil {
			a = &agg{ops: make(map[models.OpType]struct{})}
			aggs[r.UserID] = a
		}
		a.count++
		a.ops[r.QueryType] = struct{}{}
		if r.QueryType.IsModification() {
			a.mods++
		}
		a.hours = append(a.hours, float64(h))
	}
	hourStd := make(map[int]float64, len(aggs))
	for user, a := range aggs {
		hourStd[user] = sampleStd(a.hours)
	}

	ds := &Dataset{
		Kind:  KindTracker,
		Names: TrackerFeatureNames(),
		Rows:  make([][]float64, 0, len(records)),
		Meta:  make([]RowMeta, 0, len(records)),
	}
	for _, r := range records {
		h, dow, mo, dom := decompose(r.Timestamp)
		a := aggs[r.UserID]

		row := []float64{
			float64(h), float64(dow), float64(mo), float64(dom),
			b2f(isOutsideWorkHours(h, cfg)),
			b2f(isWeekend(dow)),
			b2f(h >= cfg.TrackerNightStartHour || h < cfg.TrackerNightEndHour),
		}
		for _, op := range models.KnownOps {
			row = append(row, b2f(r.QueryType == op))
		}
		row = append(row,
			float64(a.count),
			float64(len(a.ops)),
			float64(a.mods)/float64(a.count),
			hourStd[r.UserID],
		)

		ds.Rows = append(ds.Rows, row)
		ds.Meta = append(ds.Meta, RowMeta{
			UserID:    r.UserID,
			Timestamp: r.Timestamp,
			QueryType: r.QueryType,
		})
	}

	logging.Debug().
		Int("rows", ds.Len()).
		Int("features", len(ds.Names)).
		Int("users", len(aggs)).
		Msg("Tracker feature matrix built")

	return ds
}

// BuildStaff featurizes cleaned staff login records.
func BuildStaff(records []models.StaffRecord, cfg config.FeaturesConfig) *Dataset {
	type agg struct {
		count    int
		weekends int
		hours    []float64
	}
	aggs := make(map[int]*agg)
	for _, r := range records {
		h, dow, _, _ := decompose(r.Timestamp)
		a := aggs[r.UserID]
		if a == nil {
			a = &agg{}
			aggs[r.UserID] = a
		}
		a.count++
		if isWeekend(dow) {
			a.weekends++
		}
		a.hours = append(a.hours, float64(h))
	}
	hourStd := make(map[int]float64, len(aggs))
	for user, a := range aggs {
		hourStd[user] = sampleStd(a.hours)
	}

	ds := &Dataset{
		Kind:  KindStaff,
		Names: StaffFeatureNames(),
		Rows:  make([][]float64, 0, len(records)),
		Meta:  make([]RowMeta, 0, len(records)),
	}
	for _, r := range records {
		h, dow, mo, dom := decompose(r.Timestamp)
		a := aggs[r.UserID]

		ds.Rows = append(ds.Rows, []float64{
			float64(h), float64(dow), float64(mo), float64(dom),
			b2f(h < cfg.WorkStartHour),
			b2f(h >= cfg.LateLoginHour),
			b2f(h >= cfg.WorkEndHour),
			b2f(isWeekend(dow)),
			float64(a.count),
			hourStd[r.UserID],
			float64(a.weekends) / float64(a.count),
		})
		ds.Meta = append(ds.Meta, RowMeta{
			UserID:    r.UserID,
			Timestamp: r.Timestamp,
			Name:      r.Name,
		})
	}

	logging.Debug().
		Int("rows", ds.Len()).
		Int("features", len(ds.Names)).
		Int("users", len(aggs)).
		Msg("Staff feature matrix built")

	return ds
}

type userSource struct {
	user   int
	source models.Source
}

// BuildMerged featurizes the combined activity stream. The merged
// night-shift window does not wrap: it covers midnight to the configured
// end hour only, a deliberate divergence from the tracker window.
func BuildMerged(events []models.MergedEvent, cfg config.FeaturesConfig) *Dataset {
	type agg struct {
		count    int
		weekends int
		outside  int
		hours    []float64
	}
	aggs := make(map[int]*agg)
	sourceCount := make(map[userSource]int)
	for _, e := range events {
		h, dow, _, _ := decompose(e.Timestamp)
		a := aggs[e.UserID]
		if a == nil {
			a = &agg{}
			aggs[e.UserID] = a
		}
		a.count++
		if isWeekend(dow) {
			a.weekends++
		}
		if isOutsideWorkHours(h, cfg) {
			a.outside++
		}
		a.hours = append(a.hours, float64(h))
		sourceCount[userSource{e.UserID, e.Source}]++
	}
	hourStd := make(map[int]float64, len(aggs))
	for user, a := range aggs {
		hourStd[user] = sampleStd(a.hours)
	}

	ds := &Dataset{
		Kind:  KindMerged,
		Names: MergedFeatureNames(),
		Rows:  make([][]float64, 0, len(events)),
		Meta:  make([]RowMeta, 0, len(events)),
	}
	for _, e := range events {
		h, dow, mo, dom := decompose(e.Timestamp)
		a := aggs[e.UserID]

		ds.Rows = append(ds.Rows, []float64{
			float64(h), float64(dow), float64(mo), float64(dom),
			b2f(isOutsideWorkHours(h, cfg)),
			b2f(isWeekend(dow)),
			b2f(h < cfg.MergedNightEndHour),
			b2f(e.Source == models.SourceTracker),
			b2f(e.Source == models.SourceStaff),
			float64(a.count),
			float64(sourceCount[userSource{e.UserID, e.Source}]),
			hourStd[e.UserID],
			float64(a.weekends) / float64(a.count),
			float64(a.outside) / float64(a.count),
		})
		ds.Meta = append(ds.Meta, RowMeta{
			UserID:    e.UserID,
			Timestamp: e.Timestamp,
			Source:    e.Source,
		})
	}

	logging.Debug().
		Int("rows", ds.Len()).
		Int("features", len(ds.Names)).
		Int("users", len(aggs)).
		Msg("Merged feature matrix built")

	return ds
}
