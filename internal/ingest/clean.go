// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package ingest

import (
	"sort"

	"github.com/auditrail/auditrail/internal/logging"
	"github.com/auditrail/auditrail/internal/models"
	"github.com/auditrail/auditrail/internal/stats"
)

// CleanStats counts what each cleaning rule removed.
type CleanStats struct {
	Input      int     `json:"input"`
	Duplicates int     `json:"duplicates"`
	Outliers   int     `json:"outliers"`
	Output     int     `json:"output"`
	LowerBound float64 `json:"lower_bound,omitempty"`
	UpperBound float64 `json:"upper_bound,omitempty"`
}

type trackerKey struct {
	ts    int64
	query string
	user  int
}

// CleanTracker deduplicates on (timestamp, query_info, user_id) keeping the
// first occurrence, then trims rows whose query length falls outside the
// IQR fence [Q1 - m*IQR, Q3 + m*IQR].
func CleanTracker(records []models.TrackerRecord, iqrMultiplier float64) ([]models.TrackerRecord, CleanStats) {
	cs := CleanStats{Input: len(records)}

	seen := make(map[trackerKey]struct{}, len(records))
	deduped := make([]models.TrackerRecord, 0, len(records))
	for _, r := range records {
		key := trackerKey{ts: r.Timestamp.UnixNano(), query: r.QueryInfo, user: r.UserID}
		if _, dup := seen[key]; dup {
			cs.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, r)
	}

	if len(deduped) == 0 {
		cs.Output = 0
		return deduped, cs
	}

	lengths := make([]float64, len(deduped))
	for i, r := range deduped {
		lengths[i] = float64(r.QueryLength())
	}
	q1 := stats.Quantile(lengths, 0.25)
	q3 := stats.Quantile(lengths, 0.75)
	iqr := q3 - q1
	cs.LowerBound = q1 - iqrMultiplier*iqr
	cs.UpperBound = q3 + iqrMultiplier*iqr

	kept := deduped[:0]
	for _, r := range deduped {
		l := float64(r.QueryLength())
		if l < cs.LowerBound || l > cs.UpperBound {
			cs.Outliers++
			continue
		}
		kept = append(kept, r)
	}
	cs.Output = len(kept)

	logging.Debug().
		Int("input", cs.Input).
		Int("duplicates", cs.Duplicates).
		Int("outliers", cs.Outliers).
		Int("output", cs.Output).
		Float64("lower_bound", cs.LowerBound).
		Float64("upper_bound", cs.UpperBound).
		Msg("Tracker records cleaned")

	return kept, cs
}

type staffKey struct {
	user  int
	date  string
	clock string
}

// CleanStaff deduplicates on (user_id, date, clock) keeping the first
// occurrence. No outlier trim applies to logins.
func CleanStaff(records []models.StaffRecord) ([]models.StaffRecord, CleanStats) {
	cs := CleanStats{Input: len(records)}

	seen := make(map[staffKey]struct{}, len(records))
	kept := make([]models.StaffRecord, 0, len(records))
	for _, r := range records {
		key := staffKey{user: r.UserID, date: r.Date, clock: r.Clock}
		if _, dup := seen[key]; dup {
			cs.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r)
	}
	cs.Output = len(kept)

	logging.Debug().
		Int("input", cs.Input).
		Int("duplicates", cs.Duplicates).
		Int("output", cs.Output).
		Msg("Staff records cleaned")

	return kept, cs
}

type mergedKey struct {
	user   int
	ts     int64
	source models.Source
}

// Merge combines cleaned tracker and staff records into one activity
// stream, deduplicates on (user_id, timestamp, source) keeping the first
// occurrence, and sorts by timestamp. The sort is stable so equal
// timestamps keep tracker-before-staff input order.
func Merge(tracker []models.TrackerRecord, staff []models.StaffRecord) ([]models.MergedEvent, CleanStats) {
	cs := CleanStats{Input: len(tracker) + len(staff)}

	seen := make(map[mergedKey]struct{}, cs.Input)
	events := make([]models.MergedEvent, 0, cs.Input)
	add := func(e models.MergedEvent) {
		key := mergedKey{user: e.UserID, ts: e.Timestamp.UnixNano(), source: e.Source}
		if _, dup := seen[key]; dup {
			cs.Duplicates++
			return
		}
		seen[key] = struct{}{}
		events = append(events, e)
	}

	for _, r := range tracker {
		add(models.MergedEvent{UserID: r.UserID, Timestamp: r.Timestamp, Source: models.SourceTracker})
	}
	for _, r := range staff {
		add(models.MergedEvent{UserID: r.UserID, Timestamp: r.Timestamp, Source: models.SourceStaff})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	cs.Output = len(events)

	logging.Debug().
		Int("tracker", len(tracker)).
		Int("staff", len(staff)).
		Int("duplicates", cs.Duplicates).
		Int("output", cs.Output).
		Msg("Merged activity stream built")

	return events, cs
}
