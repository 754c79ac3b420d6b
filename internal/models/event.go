// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package models defines the core record types shared by every pipeline
// stage: raw tracker and staff log records, the merged activity event, and
// the query-operation taxonomy.
package models

import (
	"regexp"
	"strings"
	"time"
)

// Source identifies which activity log a record came from.
type Source string

const (
	SourceTracker Source = "tracker"
	SourceStaff   Source = "staff"
)

// OpType is the database operation class extracted from a tracker query.
// Values are uppercase to match the report vocabulary.
type OpType string

const (
	OpInsert OpType = "INSERT"
	OpUpdate OpType = "UPDATE"
	OpDelete OpType = "DELETE"
	OpSelect OpType = "SELECT"
	OpOther  OpType = "OTHER"
)

// KnownOps is the fixed operation vocabulary, in the column order used by
// the one-hot encoding. The set is fixed so feature schemas stay identical
// across datasets regardless of which operations actually occur.
var KnownOps = []OpType{OpDelete, OpInsert, OpOther, OpSelect, OpUpdate}

// IsModification reports whether the operation writes data.
func (o OpType) IsModification() bool {
	return o == OpInsert || o == OpUpdate || o == OpDelete
}

var opPattern = regexp.MustCompile(`(?i)(insert|update|delete|select)`)

// ExtractOp classifies a raw query string by the first recognized operation
// keyword, case-insensitively. Queries with no recognized keyword classify
// as OpOther.
func ExtractOp(queryInfo string) OpType {
	m := opPattern.FindString(queryInfo)
	if m == "" {
		return OpOther
	}
	return OpType(strings.ToUpper(m))
}

// TrackerRecord is one cleaned row of the database-query tracker log.
type TrackerRecord struct {
	Timestamp time.Time
	QueryInfo string
	UserID    int
	QueryType OpType
}

// QueryLength returns the query text length used by the outlier trim.
func (r TrackerRecord) QueryLength() int {
	return len(r.QueryInfo)
}

// StaffRecord is one cleaned row of the staff login log. Date and Clock
// keep the raw column values; Timestamp is their combined parse.
type StaffRecord struct {
	UserID    int
	Date      string
	Clock     string
	Name      string
	Timestamp time.Time
}

// MergedEvent is one row of the combined activity stream: tracker queries
// and staff logins reduced to the fields both logs share.
type MergedEvent struct {
	UserID    int
	Timestamp time.Time
	Source    Source
}
