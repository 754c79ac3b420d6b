// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package lof implements Local Outlier Factor anomaly scoring with
// automatic neighborhood-size selection.
//
// For each point the factor is the ratio of the mean local reachability
// density of its k nearest neighbors to the point's own density; values
// well above 1 mark points in sparser regions than their neighborhood.
// Scores here keep the positive factor, so larger always means more
// anomalous.
package lof

import (
	"fmt"
	"math"
	"sort"
)

// lrdEpsilon keeps the local reachability density finite when a point's
// neighbors are all duplicates of it (mean reachability distance 0).
const lrdEpsilon = 1e-10

// ModelFittingError reports a dataset too small to fit the requested
// neighborhood.
type ModelFittingError struct {
	K       int
	Records int
}

func (e *ModelFittingError) Error() string {
	return fmt.Sprintf("cannot fit %d-neighbor outlier model on %d records (need at least %d)",
		e.K, e.Records, e.K+1)
}

type neighbor struct {
	dist float64
	idx  int
}

// Compute returns the positive local outlier factor for every row, using
// exact k-nearest-neighbor search with Euclidean distance. Neighbor ties
// break deterministically by (distance, index).
func Compute(rows [][]float64, k int) ([]float64, error) {
	n := len(rows)
	if k < 1 {
		return nil, fmt.Errorf("neighborhood size must be positive, got %d", k)
	}
	if n <= k {
		return nil, &ModelFittingError{K: k, Records: n}
	}

	neighbors := make([][]neighbor, n)
	kDist := make([]float64, n)
	cands := make([]neighbor, 0, n-1)
	for i := 0; i < n; i++ {
		cands = cands[:0]
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			cands = append(cands, neighbor{dist: euclidean(rows[i], rows[j]), idx: j})
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].dist != cands[b].dist {
				return cands[a].dist < cands[b].dist
			}
			return cands[a].idx < cands[b].idx
		})
		neighbors[i] = append([]neighbor(nil), cands[:k]...)
		kDist[i] = cands[k-1].dist
	}

	// Local reachability density: inverse mean reachability distance to
	// the neighborhood, where reach(i,o) = max(kDist(o), d(i,o)).
	lrd := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for _, o := range neighbors[i] {
			sum += math.Max(kDist[o.idx], o.dist)
		}
		lrd[i] = 1.0 / (sum/float64(k) + lrdEpsilon)
	}

	factors := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for _, o := range neighbors[i] {
			sum += lrd[o.idx]
		}
		factors[i] = sum / float64(k) / lrd[i]
	}
	return factors, nil
}

func euclidean(a, b []float64) float64 {
	var ss float64
	for i := range a {
		d := a[i] - b[i]
		ss += d * d
	}
	return math.Sqrt(ss)
}
