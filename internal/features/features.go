// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package features turns cleaned activity records into fixed-schema numeric
// matrices: temporal decomposition, policy flags, one-hot encodings and
// per-user behavioral aggregates broadcast back to every row of the owning
// user.
//
// The feature-name list is authoritative for column order. Downstream
// stages (standardizer, scorer, cluster engine) index columns positionally,
// so the three builders emit their schemas in a fixed order regardless of
// which values actually occur in the data.
package features

import (
	"fmt"
	"time"

	"github.com/auditrail/auditrail/internal/config"
	"github.com/auditrail/auditrail/internal/models"
	"github.com/auditrail/auditrail/internal/stats"
)

// Kind names the dataset track a matrix belongs to.
type Kind string

const (
	KindTracker Kind = "tracker"
	KindStaff   Kind = "staff"
	KindMerged  Kind = "merged"
)

// RowMeta carries the non-numeric columns alongside a feature row, for the
// scored/clustered output tables and the cluster summaries. Fields not
// applicable to a track stay zero-valued.
type RowMeta struct {
	UserID    int
	Timestamp time.Time
	QueryType models.OpType // tracker rows
	Name      string        // staff rows
	Source    models.Source // merged rows
}

// Dataset is a feature matrix with its authoritative column-name list and
// per-row metadata. Rows[i][j] is the value of column Names[j] for row i.
type Dataset struct {
	Kind  Kind
	Names []string
	Rows  [][]float64
	Meta  []RowMeta
}

// SchemaError reports a feature column missing from a dataset. This is a
// precondition violation between stages and is always fatal.
type SchemaError struct {
	Kind   Kind
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("feature column %q missing from %s dataset", e.Column, e.Kind)
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// ColumnIndex returns the position of the named column.
func (d *Dataset) ColumnIndex(name string) (int, error) {
	for i, n := range d.Names {
		if n == name {
			return i, nil
		}
	}
	return 0, &SchemaError{Kind: d.Kind, Column: name}
}

// Column returns the named column as a slice.
func (d *Dataset) Column(name string) ([]float64, error) {
	idx, err := d.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	col := make([]float64, len(d.Rows))
	for i, row := range d.Rows {
		col[i] = row[idx]
	}
	return col, nil
}

// Select returns the rows at the given indices as a new dataset sharing
// nothing with the receiver.
func (d *Dataset) Select(indices []int) *Dataset {
	out := &Dataset{
		Kind:  d.Kind,
		Names: append([]string(nil), d.Names...),
		Rows:  make([][]float64, 0, len(indices)),
		Meta:  make([]RowMeta, 0, len(indices)),
	}
	for _, i := range indices {
		out.Rows = append(out.Rows, append([]float64(nil), d.Rows[i]...))
		out.Meta = append(out.Meta, d.Meta[i])
	}
	return out
}

// decompose extracts (hour, day_of_week, month, day_of_month) with Monday=0
// weekdays. A zero timestamp degrades to the documented defaults (0 for
// hour and weekday, 1 for month and day) instead of erroring; upstream
// cleaning normally guarantees this never happens.
func decompose(t time.Time) (hour, dayOfWeek, month, dayOfMonth int) {
	if t.IsZero() {
		return 0, 0, 1, 1
	}
	return t.Hour(), models.Weekday01(t), int(t.Month()), t.Day()
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func isWeekend(dayOfWeek int) bool {
	return dayOfWeek == 5 || dayOfWeek == 6
}

func isOutsideWorkHours(hour int, cfg config.FeaturesConfig) bool {
	return hour < cfg.WorkStartHour || hour >= cfg.WorkEndHour
}

// sampleStd is the per-user hour-dispersion statistic: sample standard
// deviation, with singletons mapping to 0.
func sampleStd(hours []float64) float64 {
	return stats.SampleStd(hours)
}
