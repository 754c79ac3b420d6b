// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package stats provides the small set of descriptive statistics the
// pipeline stages share: means, standard deviations, linearly interpolated
// quantiles and modes.
//
// Two standard-deviation conventions are in play and must not be mixed:
// per-user hour dispersion uses the sample form (n-1 denominator, singleton
// maps to 0), while the feature standardizer uses the population form
// (n denominator).
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleStd returns the sample standard deviation (n-1 denominator).
// Slices with fewer than two values return 0.
func SampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// PopVariance returns the population variance (n denominator), or 0 for an
// empty slice.
func PopVariance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return ss / float64(len(xs))
}

// PopStd returns the population standard deviation (n denominator).
func PopStd(xs []float64) float64 {
	return math.Sqrt(PopVariance(xs))
}

// Quantile returns the q-th quantile (q in [0,1]) using linear
// interpolation between order statistics. The input need not be sorted.
// An empty slice returns 0.
func Quantile(xs []float64, q float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return xs[0]
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

// Median returns the 50th percentile.
func Median(xs []float64) float64 {
	return Quantile(xs, 0.5)
}

// Percentile returns the p-th percentile (p in [0,100]).
func Percentile(xs []float64, p float64) float64 {
	return Quantile(xs, p/100)
}

// ModeInt returns the most frequent value; ties go to the smallest value.
// An empty slice returns 0 and false.
func ModeInt(xs []int) (int, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	counts := make(map[int]int, len(xs))
	for _, x := range xs {
		counts[x]++
	}
	best, bestCount := 0, -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best, true
}

// ModeString returns the most frequent string; ties go to the
// lexicographically smallest value. An empty slice returns "" and false.
func ModeString(xs []string) (string, bool) {
	if len(xs) == 0 {
		return "", false
	}
	counts := make(map[string]int, len(xs))
	for _, x := range xs {
		counts[x]++
	}
	var best string
	bestCount := -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best, true
}

// MinMax returns the smallest and largest values. An empty slice returns
// (0, 0).
func MinMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}
