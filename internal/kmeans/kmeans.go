// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package kmeans clusters the records flagged anomalous by the outlier
// scorer: k-means++ seeded Lloyd iterations with restarts, candidate
// cluster counts scored by silhouette, seeded for reproducible partitions.
package kmeans

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/auditrail/auditrail/internal/logging"
)

// UnclusteredID is the sentinel cluster id for rows that were never
// clustered (non-anomalous records).
const UnclusteredID = -1

// InsufficientDataError reports an anomaly set too small to cluster.
type InsufficientDataError struct {
	Records int
	Min     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("cannot cluster %d anomalous records (need at least %d)", e.Records, e.Min)
}

// Config parameterizes a clustering run.
type Config struct {
	MinAnomalies  int
	MaxClusters   int
	NumInit       int
	MaxIterations int
	Seed          int64
}

// Model is a fitted clustering, sufficient to assign new points to their
// nearest center without re-fitting.
type Model struct {
	K             int         `json:"k"`
	Centers       [][]float64 `json:"centers"`
	Inertia       float64     `json:"inertia"`
	Silhouette    float64     `json:"silhouette"`
	DaviesBouldin float64     `json:"davies_bouldin"`
}

// Assign returns the index of the center nearest to the point.
func (m *Model) Assign(point []float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, center := range m.Centers {
		if d := sqDist(point, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Candidate records one cluster count tried during the search.
type Candidate struct {
	K             int     `json:"k"`
	Inertia       float64 `json:"inertia"`
	Silhouette    float64 `json:"silhouette"`
	DaviesBouldin float64 `json:"davies_bouldin"`
}

// Result is the committed output of a clustering run. Assignments holds
// one cluster id in [0, K) per input row, in input order.
type Result struct {
	Model       *Model      `json:"model"`
	Candidates  []Candidate `json:"candidates"`
	Assignments []int       `json:"-"`
}

// Search clusters the rows: candidate K ranges over [2, min(maxClusters,
// n/3)], each candidate fits NumInit k-means++ restarts keeping the lowest
// inertia, and the candidate with the strictly highest silhouette wins
// (ascending order, so ties keep the smallest K).
func Search(rows [][]float64, cfg Config) (*Result, error) {
	n := len(rows)
	if n < cfg.MinAnomalies {
		return nil, &InsufficientDataError{Records: n, Min: cfg.MinAnomalies}
	}
	maxK := cfg.MaxClusters
	if limit := n / 3; limit < maxK {
		maxK = limit
	}
	if maxK < 2 {
		// The candidate range collapsed: same failure as too few records.
		return nil, &InsufficientDataError{Records: n, Min: 3 * 2}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	var (
		candidates []Candidate
		best       *Model
		bestAssign []int
	)
	for k := 2; k <= maxK; k++ {
		assign, centers, inertia := fitBestOf(rows, k, cfg, rng)
		sil := silhouette(rows, assign, k)
		db := daviesBouldin(rows, assign, centers)
		candidates = append(candidates, Candidate{
			K:             k,
			Inertia:       inertia,
			Silhouette:    sil,
			DaviesBouldin: db,
		})

		logging.Debug().
			Int("k", k).
			Float64("inertia", inertia).
			Float64("silhouette", sil).
			Float64("davies_bouldin", db).
			Msg("Cluster-count candidate evaluated")

		if best == nil || sil > best.Silhouette {
			best = &Model{
				K:             k,
				Centers:       centers,
				Inertia:       inertia,
				Silhouette:    sil,
				DaviesBouldin: db,
			}
			bestAssign = assign
		}
	}

	logging.Info().
		Int("chosen_k", best.K).
		Float64("silhouette", best.Silhouette).
		Int("records", n).
		Msg("Clustering committed")

	return &Result{Model: best, Candidates: candidates, Assignments: bestAssign}, nil
}

// fitBestOf runs NumInit k-means++ restarts and keeps the fit with the
// lowest inertia.
func fitBestOf(rows [][]float64, k int, cfg Config, rng *rand.Rand) ([]int, [][]float64, float64) {
	var (
		bestAssign  []int
		bestCenters [][]float64
		bestInertia = math.Inf(1)
	)
	for i := 0; i < cfg.NumInit; i++ {
		assign, centers, inertia := fitOnce(rows, k, cfg.MaxIterations, rng)
		if inertia < bestInertia {
			bestAssign, bestCenters, bestInertia = assign, centers, inertia
		}
	}
	return bestAssign, bestCenters, bestInertia
}

// fitOnce runs one k-means++ initialization followed by Lloyd iterations
// until assignments stabilize or the iteration cap is hit.
func fitOnce(rows [][]float64, k, maxIter int, rng *rand.Rand) ([]int, [][]float64, float64) {
	n := len(rows)
	dims := len(rows[0])
	centers := seedPlusPlus(rows, k, rng)
	assign := make([]int, n)

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, row := range rows {
			best, bestDist := 0, math.Inf(1)
			for c := range centers {
				if d := sqDist(row, centers[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, row := range rows {
			c := assign[i]
			counts[c]++
			for j, v := range row {
				sums[c][j] += v
			}
		}
		for c := range centers {
			if counts[c] == 0 {
				// Empty cluster: restart it at the point farthest from
				// its current center.
				centers[c] = append([]float64(nil), rows[farthestFrom(rows, centers[c])]...)
				continue
			}
			center := make([]float64, dims)
			for j := range center {
				center[j] = sums[c][j] / float64(counts[c])
			}
			centers[c] = center
		}
	}

	var inertia float64
	for i, row := range rows {
		inertia += sqDist(row, centers[assign[i]])
	}
	return assign, centers, inertia
}

// seedPlusPlus picks k initial centers with D² weighting: the first
// uniformly, each next with probability proportional to the squared
// distance to the nearest already-chosen center.
func seedPlusPlus(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(rows)
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), rows[rng.Intn(n)]...))

	d2 := make([]float64, n)
	for len(centers) < k {
		var total float64
		for i, row := range rows {
			d2[i] = sqDist(row, centers[0])
			for _, c := range centers[1:] {
				if d := sqDist(row, c); d < d2[i] {
					d2[i] = d
				}
			}
			total += d2[i]
		}
		if total == 0 {
			// All points coincide with existing centers.
			centers = append(centers, append([]float64(nil), rows[rng.Intn(n)]...))
			continue
		}
		target := rng.Float64() * total
		var acc float64
		chosen := n - 1
		for i, d := range d2 {
			acc += d
			if acc >= target {
				chosen = i
				break
			}
		}
		centers = append(centers, append([]float64(nil), rows[chosen]...))
	}
	return centers
}

func farthestFrom(rows [][]float64, center []float64) int {
	best, bestDist := 0, -1.0
	for i, row := range rows {
		if d := sqDist(row, center); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	var ss float64
	for i := range a {
		d := a[i] - b[i]
		ss += d * d
	}
	return ss
}
