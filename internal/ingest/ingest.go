// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package ingest reads the raw tab-separated activity logs and applies the
// cleaning policy: malformed and incomplete rows are dropped (and counted),
// exact duplicates keep their first occurrence, and tracker rows with an
// extreme query length are trimmed by an IQR fence.
//
// Row-level failures here are tolerated by design: a batch run reports how
// many rows each rule removed rather than aborting on the first bad line.
// Only unreadable files are fatal.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/auditrail/auditrail/internal/logging"
	"github.com/auditrail/auditrail/internal/models"
)

const (
	trackerColumns = 3 // timestamp, query_info, user_id
	staffColumns   = 4 // user_id, date, timestamp, name
)

// LoadStats counts what the loader did with the raw rows.
type LoadStats struct {
	Rows              int `json:"rows"`
	Malformed         int `json:"malformed"`
	MissingCritical   int `json:"missing_critical"`
	InvalidTimestamps int `json:"invalid_timestamps"`
	Loaded            int `json:"loaded"`
}

// LoadTracker reads the tracker log: tab-separated, no header, columns
// timestamp, query_info, user_id. Rows that cannot be parsed are dropped
// and counted, never silently kept.
func LoadTracker(path string) ([]models.TrackerRecord, LoadStats, error) {
	var stats LoadStats

	f, err := os.Open(path)
	if err != nil {
		return nil, stats, fmt.Errorf("opening tracker log: %w", err)
	}
	defer f.Close()

	r := newTSVReader(f)
	var records []models.TrackerRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.Rows++
			stats.Malformed++
			continue
		}
		stats.Rows++

		if len(row) != trackerColumns {
			stats.Malformed++
			continue
		}
		rawTS, queryInfo, rawUser := row[0], row[1], strings.TrimSpace(row[2])
		if strings.TrimSpace(rawTS) == "" || strings.TrimSpace(queryInfo) == "" || rawUser == "" {
			stats.MissingCritical++
			continue
		}
		userID, err := strconv.Atoi(rawUser)
		if err != nil {
			stats.Malformed++
			continue
		}
		ts, err := models.ParseTimestamp(rawTS)
		if err != nil {
			stats.InvalidTimestamps++
			continue
		}

		records = append(records, models.TrackerRecord{
			Timestamp: ts,
			QueryInfo: queryInfo,
			UserID:    userID,
			QueryType: models.ExtractOp(queryInfo),
		})
	}
	stats.Loaded = len(records)

	logging.Debug().
		Str("path", path).
		Int("rows", stats.Rows).
		Int("loaded", stats.Loaded).
		Int("malformed", stats.Malformed).
		Int("missing_critical", stats.MissingCritical).
		Int("invalid_timestamps", stats.InvalidTimestamps).
		Msg("Tracker log loaded")

	return records, stats, nil
}

// LoadStaff reads the staff login log: tab-separated, no header, columns
// user_id, date, timestamp, name. The date and time-of-day columns combine
// into one timestamp.
func LoadStaff(path string) ([]models.StaffRecord, LoadStats, error) {
	var stats LoadStats

	f, err := os.Open(path)
	if err != nil {
		return nil, stats, fmt.Errorf("opening staff log: %w", err)
	}
	defer f.Close()

	r := newTSVReader(f)
	var records []models.StaffRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.Rows++
			stats.Malformed++
			continue
		}
		stats.Rows++

		if len(row) != staffColumns {
			stats.Malformed++
			continue
		}
		rawUser := strings.TrimSpace(row[0])
		date := strings.TrimSpace(row[1])
		clock := strings.TrimSpace(row[2])
		name := strings.TrimSpace(row[3])
		if rawUser == "" || date == "" || clock == "" || name == "" {
			stats.MissingCritical++
			continue
		}
		userID, err := strconv.Atoi(rawUser)
		if err != nil {
			stats.Malformed++
			continue
		}
		ts, err := models.ParseDateClock(date, clock)
		if err != nil {
			stats.InvalidTimestamps++
			continue
		}

		records = append(records, models.StaffRecord{
			UserID:    userID,
			Date:      date,
			Clock:     clock,
			Name:      name,
			Timestamp: ts,
		})
	}
	stats.Loaded = len(records)

	logging.Debug().
		Str("path", path).
		Int("rows", stats.Rows).
		Int("loaded", stats.Loaded).
		Int("malformed", stats.Malformed).
		Int("missing_critical", stats.MissingCritical).
		Int("invalid_timestamps", stats.InvalidTimestamps).
		Msg("Staff log loaded")

	return records, stats, nil
}

func newTSVReader(f io.Reader) *csv.Reader {
	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}
