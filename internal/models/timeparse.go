// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package models

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order when parsing a raw timestamp column.
// The tracker log normally writes "2006-01-02 15:04:05" but exports from
// other tooling have shown up in ISO-8601 and date-only forms.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
}

// clockLayouts are tried when parsing the staff log's time-of-day column.
var clockLayouts = []string{
	"15:04:05",
	"15:04",
}

// ParseTimestamp parses a raw timestamp string against the supported
// layouts. Naive timestamps are interpreted in UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// ParseDateClock combines the staff log's separate date and time-of-day
// columns into a single timestamp.
func ParseDateClock(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("empty date or clock")
	}

	d, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		// Some exports write the date day-first.
		d, err = time.ParseInLocation("02/01/2006", date, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("unparseable date %q", date)
		}
	}

	for _, layout := range clockLayouts {
		if c, perr := time.Parse(layout, clock); perr == nil {
			return time.Date(d.Year(), d.Month(), d.Day(),
				c.Hour(), c.Minute(), c.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable clock %q", clock)
}

// Weekday01 maps Go's Sunday-first weekday to the Monday=0..Sunday=6
// convention used by every temporal feature.
func Weekday01(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
