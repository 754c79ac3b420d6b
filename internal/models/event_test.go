// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package models

import (
	"testing"
	"time"
)

func TestExtractOp(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  OpType
	}{
		{"lowercase insert", "insert into accounts values (1)", OpInsert},
		{"uppercase select", "SELECT * FROM audits", OpSelect},
		{"mixed case update", "UpDaTe users set name='x'", OpUpdate},
		{"delete with whitespace", "  delete from sessions  ", OpDelete},
		{"keyword embedded in payload", "conn=42 op=UPDATE table=staff", OpUpdate},
		{"first keyword wins", "select * from (insert log)", OpSelect},
		{"no keyword", "BEGIN TRANSACTION", OpOther},
		{"empty string", "", OpOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractOp(tt.query); got != tt.want {
				t.Errorf("ExtractOp(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestOpTypeIsModification(t *testing.T) {
	mods := map[OpType]bool{
		OpInsert: true,
		OpUpdate: true,
		OpDelete: true,
		OpSelect: false,
		OpOther:  false,
	}
	for op, want := range mods {
		if got := op.IsModification(); got != want {
			t.Errorf("%s.IsModification() = %v, want %v", op, got, want)
		}
	}
}

func TestKnownOpsOrder(t *testing.T) {
	want := []OpType{OpDelete, OpInsert, OpOther, OpSelect, OpUpdate}
	if len(KnownOps) != len(want) {
		t.Fatalf("KnownOps has %d entries, want %d", len(KnownOps), len(want))
	}
	for i := range want {
		if KnownOps[i] != want[i] {
			t.Errorf("KnownOps[%d] = %q, want %q", i, KnownOps[i], want[i])
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{
			name: "space separated",
			raw:  "2026-01-05 14:30:00",
			want: time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC),
		},
		{
			name: "iso8601",
			raw:  "2026-01-05T14:30:00",
			want: time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC),
		},
		{
			name: "date only",
			raw:  "2026-01-05",
			want: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "surrounding whitespace",
			raw:  " 2026-01-05 14:30:00 ",
			want: time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC),
		},
		{name: "empty", raw: "", wantErr: true},
		{name: "garbage", raw: "not a time", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimestamp(%q) = %v, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) returned error: %v", tt.raw, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDateClock(t *testing.T) {
	got, err := ParseDateClock("2026-01-10", "07:45:30")
	if err != nil {
		t.Fatalf("ParseDateClock returned error: %v", err)
	}
	want := time.Date(2026, 1, 10, 7, 45, 30, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDateClock = %v, want %v", got, want)
	}

	if _, err := ParseDateClock("2026-01-10", "late"); err == nil {
		t.Error("ParseDateClock accepted an unparseable clock")
	}
	if _, err := ParseDateClock("", "07:45:30"); err == nil {
		t.Error("ParseDateClock accepted an empty date")
	}
}

func TestWeekday01(t *testing.T) {
	// 2026-01-05 is a Monday.
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for offset, want := range []int{0, 1, 2, 3, 4, 5, 6} {
		day := monday.AddDate(0, 0, offset)
		if got := Weekday01(day); got != want {
			t.Errorf("Weekday01(%s) = %d, want %d", day.Weekday(), got, want)
		}
	}
}
