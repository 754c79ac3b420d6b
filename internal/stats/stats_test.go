// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestMean(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{4}, 4},
		{"several", []float64{1, 2, 3, 4}, 2.5},
		{"negative", []float64{-2, 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.in); !almostEqual(got, tt.want, 1e-12) {
				t.Errorf("Mean(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSampleStd(t *testing.T) {
	if got := SampleStd(nil); got != 0 {
		t.Errorf("SampleStd(nil) = %v, want 0", got)
	}
	if got := SampleStd([]float64{7}); got != 0 {
		t.Errorf("SampleStd(singleton) = %v, want 0", got)
	}
	// Sample std of {2,4,4,4,5,5,7,9} with n-1 denominator.
	got := SampleStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	want := math.Sqrt(32.0 / 7.0)
	if !almostEqual(got, want, 1e-12) {
		t.Errorf("SampleStd = %v, want %v", got, want)
	}
}

func TestPopStd(t *testing.T) {
	// Population std of {2,4,4,4,5,5,7,9} is exactly 2.
	got := PopStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if !almostEqual(got, 2, 1e-12) {
		t.Errorf("PopStd = %v, want 2", got)
	}
	if got := PopVariance([]float64{3, 3, 3}); got != 0 {
		t.Errorf("PopVariance(constant) = %v, want 0", got)
	}
}

func TestQuantile(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}
	for _, tt := range tests {
		if got := Quantile(xs, tt.q); !almostEqual(got, tt.want, 1e-12) {
			t.Errorf("Quantile(%v, %v) = %v, want %v", xs, tt.q, got, tt.want)
		}
	}

	// Input order must not matter.
	if got := Quantile([]float64{4, 1, 3, 2}, 0.25); !almostEqual(got, 1.75, 1e-12) {
		t.Errorf("Quantile(unsorted, 0.25) = %v, want 1.75", got)
	}
	if got := Quantile(nil, 0.5); got != 0 {
		t.Errorf("Quantile(nil) = %v, want 0", got)
	}
	if got := Quantile([]float64{9}, 0.5); got != 9 {
		t.Errorf("Quantile(singleton) = %v, want 9", got)
	}
}

func TestPercentile(t *testing.T) {
	xs := []float64{10, 20, 30, 40, 50}
	if got := Percentile(xs, 5); !almostEqual(got, 12, 1e-12) {
		t.Errorf("Percentile(5) = %v, want 12", got)
	}
	if got := Percentile(xs, 50); !almostEqual(got, 30, 1e-12) {
		t.Errorf("Percentile(50) = %v, want 30", got)
	}
}

func TestModeInt(t *testing.T) {
	if _, ok := ModeInt(nil); ok {
		t.Error("ModeInt(nil) reported a mode")
	}
	if got, _ := ModeInt([]int{3, 1, 3, 2, 1, 3}); got != 3 {
		t.Errorf("ModeInt = %d, want 3", got)
	}
	// Tie between 1 and 2 goes to the smaller value.
	if got, _ := ModeInt([]int{2, 1, 2, 1}); got != 1 {
		t.Errorf("ModeInt tie = %d, want 1", got)
	}
}

func TestModeString(t *testing.T) {
	if got, _ := ModeString([]string{"SELECT", "INSERT", "SELECT"}); got != "SELECT" {
		t.Errorf("ModeString = %q, want SELECT", got)
	}
	if got, _ := ModeString([]string{"b", "a"}); got != "a" {
		t.Errorf("ModeString tie = %q, want a", got)
	}
}

func TestMinMax(t *testing.T) {
	lo, hi := MinMax([]float64{3, -1, 7, 0})
	if lo != -1 || hi != 7 {
		t.Errorf("MinMax = (%v, %v), want (-1, 7)", lo, hi)
	}
	lo, hi = MinMax(nil)
	if lo != 0 || hi != 0 {
		t.Errorf("MinMax(nil) = (%v, %v), want (0, 0)", lo, hi)
	}
}
