// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package kmeans

import "math"

// silhouette returns the mean silhouette coefficient over all points:
// (b-a)/max(a,b) with a = mean intra-cluster distance and b = mean
// distance to the nearest other cluster. Points alone in their cluster
// contribute 0.
func silhouette(rows [][]float64, assign []int, k int) float64 {
	n := len(rows)
	if n == 0 || k < 2 {
		return 0
	}

	counts := make([]int, k)
	for _, c := range assign {
		counts[c]++
	}

	var total float64
	sums := make([]float64, k)
	for i := 0; i < n; i++ {
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			sums[assign[j]] += math.Sqrt(sqDist(rows[i], rows[j]))
		}

		own := assign[i]
		if counts[own] < 2 {
			continue // silhouette of a singleton cluster is defined as 0
		}
		a := sums[own] / float64(counts[own]-1)

		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || counts[c] == 0 {
				continue
			}
			if mean := sums[c] / float64(counts[c]); mean < b {
				b = mean
			}
		}
		if math.IsInf(b, 1) {
			continue
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n)
}

// daviesBouldin returns the Davies-Bouldin index: the mean, over clusters,
// of the worst-case ratio of summed within-cluster scatter to
// between-center separation. Lower is better.
func daviesBouldin(rows [][]float64, assign []int, centers [][]float64) float64 {
	k := len(centers)
	if k < 2 {
		return 0
	}

	counts := make([]int, k)
	scatter := make([]float64, k)
	for i, row := range rows {
		c := assign[i]
		counts[c]++
		scatter[c] += math.Sqrt(sqDist(row, centers[c]))
	}
	active := 0
	for c := range scatter {
		if counts[c] > 0 {
			scatter[c] /= float64(counts[c])
			active++
		}
	}
	if active < 2 {
		return 0
	}

	var total float64
	for i := 0; i < k; i++ {
		if counts[i] == 0 {
			continue
		}
		worst := 0.0
		for j := 0; j < k; j++ {
			if j == i || counts[j] == 0 {
				continue
			}
			sep := math.Sqrt(sqDist(centers[i], centers[j]))
			if sep == 0 {
				continue
			}
			if r := (scatter[i] + scatter[j]) / sep; r > worst {
				worst = r
			}
		}
		total += worst
	}
	return total / float64(active)
}
