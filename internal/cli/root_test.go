// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package cli

import (
	"reflect"
	"testing"

	"github.com/auditrail/auditrail/internal/pipeline"
)

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCommand()
	if root.Use != "auditrail" {
		t.Errorf("root.Use = %q", root.Use)
	}

	run, _, err := root.Find([]string{"run"})
	if err != nil {
		t.Fatalf("Find(run) error = %v", err)
	}
	for _, flag := range []string{"config", "dataset"} {
		if run.Flags().Lookup(flag) == nil {
			t.Errorf("run command missing --%s flag", flag)
		}
	}
}

func TestExpandDatasets(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"all shorthand", []string{"all"}, pipeline.AllDatasets()},
		{"all among others", []string{"tracker", "all"}, pipeline.AllDatasets()},
		{"explicit list", []string{"staff", "merged"}, []string{"staff", "merged"}},
		{"unknown passes through", []string{"sessions"}, []string{"sessions"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandDatasets(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expandDatasets(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
