// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package store persists pipeline stages to DuckDB and exports them as
// CSV. Every stage writes a full table (cleaned records, feature matrix,
// scored rows, clustered rows), so a rerun or a downstream consumer can
// read any intermediate snapshot with plain SQL.
//
// The default database is in-memory: a batch run only needs the tables to
// exist long enough to export them, and a file-backed database is a config
// switch away when the snapshots should survive the process.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/auditrail/auditrail/internal/config"
	"github.com/auditrail/auditrail/internal/features"
	"github.com/auditrail/auditrail/internal/logging"
	"github.com/auditrail/auditrail/internal/models"
)

// Store wraps a DuckDB connection.
type Store struct {
	conn *sql.DB
}

// Open connects to DuckDB. An empty path runs in-memory.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "2GB"
	}
	connStr := fmt.Sprintf("%s?threads=%d&max_memory=%s", cfg.Path, threads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging duckdb: %w", err)
	}

	logging.Debug().
		Str("path", cfg.Path).
		Int("threads", threads).
		Str("max_memory", maxMemory).
		Msg("DuckDB opened")

	return &Store{conn: conn}, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// CountRows returns the row count of a table.
func (s *Store) CountRows(ctx context.Context, table string) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(table))
	if err := s.conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// ExportCSV writes a table to a CSV file with a header row.
func (s *Store) ExportCSV(ctx context.Context, table, path string) error {
	query := fmt.Sprintf(`COPY (SELECT * FROM %s) TO ? (FORMAT CSV, HEADER)`, quoteIdent(table))
	if _, err := s.conn.ExecContext(ctx, query, path); err != nil {
		return fmt.Errorf("exporting %s to %s: %w", table, path, err)
	}
	logging.Debug().Str("table", table).Str("path", path).Msg("Table exported")
	return nil
}

// SaveTrackerRecords replaces the named table with the cleaned tracker log.
func (s *Store) SaveTrackerRecords(ctx context.Context, table string, records []models.TrackerRecord) error {
	cols := []column{
		{"event_time", "TIMESTAMP"},
		{"query_info", "VARCHAR"},
		{"user_id", "BIGINT"},
		{"query_type", "VARCHAR"},
	}
	return s.replaceTable(ctx, table, cols, len(records), func(i int) []any {
		r := records[i]
		return []any{r.Timestamp, r.QueryInfo, r.UserID, string(r.QueryType)}
	})
}

// SaveStaffRecords replaces the named table with the cleaned staff log.
func (s *Store) SaveStaffRecords(ctx context.Context, table string, records []models.StaffRecord) error {
	cols := []column{
		{"user_id", "BIGINT"},
		{"event_time", "TIMESTAMP"},
		{"staff_name", "VARCHAR"},
	}
	return s.replaceTable(ctx, table, cols, len(records), func(i int) []any {
		r := records[i]
		return []any{r.UserID, r.Timestamp, r.Name}
	})
}

// SaveMergedEvents replaces the named table with the merged activity stream.
func (s *Store) SaveMergedEvents(ctx context.Context, table string, events []models.MergedEvent) error {
	cols := []column{
		{"user_id", "BIGINT"},
		{"event_time", "TIMESTAMP"},
		{"source", "VARCHAR"},
	}
	return s.replaceTable(ctx, table, cols, len(events), func(i int) []any {
		e := events[i]
		return []any{e.UserID, e.Timestamp, string(e.Source)}
	})
}

// Extra is an additional numeric column saved alongside a feature matrix
// (anomaly scores, flags, cluster ids).
type Extra struct {
	Name   string
	Ints   []int
	Floats []float64
}

// SaveDataset replaces the named table with a feature matrix: metadata
// columns first, then one DOUBLE column per feature, then any extras.
func (s *Store) SaveDataset(ctx context.Context, table string, ds *features.Dataset, extras ...Extra) error {
	for _, ex := range extras {
		n := len(ex.Ints)
		if ex.Ints == nil {
			n = len(ex.Floats)
		}
		if n != ds.Len() {
			return fmt.Errorf("extra column %s has %d values for %d rows", ex.Name, n, ds.Len())
		}
	}

	cols := metaColumns(ds.Kind)
	for _, name := range ds.Names {
		cols = append(cols, column{name, "DOUBLE"})
	}
	for _, ex := range extras {
		typ := "DOUBLE"
		if ex.Ints != nil {
			typ = "BIGINT"
		}
		cols = append(cols, column{ex.Name, typ})
	}

	return s.replaceTable(ctx, table, cols, ds.Len(), func(i int) []any {
		vals := metaValues(ds.Kind, ds.Meta[i])
		for _, v := range ds.Rows[i] {
			vals = append(vals, v)
		}
		for _, ex := range extras {
			if ex.Ints != nil {
				vals = append(vals, ex.Ints[i])
			} else {
				vals = append(vals, ex.Floats[i])
			}
		}
		return vals
	})
}

type column struct {
	name string
	typ  string
}

func metaColumns(kind features.Kind) []column {
	switch kind {
	case features.KindTracker:
		return []column{{"user_id", "BIGINT"}, {"event_time", "TIMESTAMP"}, {"query_type", "VARCHAR"}}
	case features.KindStaff:
		return []column{{"user_id", "BIGINT"}, {"event_time", "TIMESTAMP"}, {"staff_name", "VARCHAR"}}
	default:
		return []column{{"user_id", "BIGINT"}, {"event_time", "TIMESTAMP"}, {"source", "VARCHAR"}}
	}
}

func metaValues(kind features.Kind, m features.RowMeta) []any {
	switch kind {
	case features.KindTracker:
		return []any{m.UserID, m.Timestamp, string(m.QueryType)}
	case features.KindStaff:
		return []any{m.UserID, m.Timestamp, m.Name}
	default:
		return []any{m.UserID, m.Timestamp, string(m.Source)}
	}
}

// replaceTable drops, recreates and fills a table inside one transaction.
func (s *Store) replaceTable(ctx context.Context, table string, cols []column, rows int, values func(i int) []any) error {
	defs := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(c.name), c.typ)
		marks[i] = "?"
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction for %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(table))); err != nil {
		return fmt.Errorf("dropping %s: %w", table, err)
	}
	create := fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("creating %s: %w", table, err)
	}

	insert := fmt.Sprintf(`INSERT INTO %s VALUES (%s)`, quoteIdent(table), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < rows; i++ {
		if _, err := stmt.ExecContext(ctx, values(i)...); err != nil {
			return fmt.Errorf("inserting row %d into %s: %w", i, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", table, err)
	}

	logging.Debug().Str("table", table).Int("rows", rows).Msg("Table replaced")
	return nil
}

// quoteIdent quotes an identifier for DuckDB.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
