// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

package lof

import (
	"fmt"
	"math"

	"github.com/auditrail/auditrail/internal/logging"
	"github.com/auditrail/auditrail/internal/stats"
)

// State tracks the scorer's single-pass lifecycle.
type State int

const (
	StateUnfit State = iota
	StateGridSearching
	StateFit
	StateScored
)

func (s State) String() string {
	switch s {
	case StateUnfit:
		return "unfit"
	case StateGridSearching:
		return "grid_searching"
	case StateFit:
		return "fit"
	case StateScored:
		return "scored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config parameterizes a scoring run. NeighborCandidates order matters:
// selection ties go to the earlier candidate.
type Config struct {
	Contamination      float64
	NeighborCandidates []int
}

// GridResult records one candidate neighborhood size and what it produced.
type GridResult struct {
	K              int     `json:"k"`
	EffectiveK     int     `json:"effective_k"`
	AnomalyCount   int     `json:"anomaly_count"`
	AnomalyPercent float64 `json:"anomaly_percent"`
	ScoreMin       float64 `json:"score_min"`
	ScoreMax       float64 `json:"score_max"`
	ScoreMean      float64 `json:"score_mean"`
}

// Result is the committed output of a scoring run.
type Result struct {
	ChosenK        int          `json:"chosen_k"`
	Contamination  float64      `json:"contamination"`
	Threshold      float64      `json:"threshold"`
	Grid           []GridResult `json:"grid"`
	Scores         []float64    `json:"-"`
	IsAnomaly      []bool       `json:"-"`
	AnomalyCount   int          `json:"anomaly_count"`
	AnomalyPercent float64      `json:"anomaly_percent"`
}

// AnomalyIndices returns the row indices flagged anomalous, in row order.
func (r *Result) AnomalyIndices() []int {
	out := make([]int, 0, r.AnomalyCount)
	for i, a := range r.IsAnomaly {
		if a {
			out = append(out, i)
		}
	}
	return out
}

// Scorer runs the grid search and final fit exactly once. The lifecycle is
// Unfit -> GridSearching -> Fit -> Scored, with no cancellation.
type Scorer struct {
	cfg   Config
	state State
}

// NewScorer returns a scorer in the Unfit state.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg, state: StateUnfit}
}

// State reports the scorer's lifecycle position.
func (s *Scorer) State() State {
	return s.state
}

// Run scores the standardized feature matrix: fit every candidate
// neighborhood size with the fixed contamination, commit to the candidate
// whose anomaly percentage lands closest to the target (first candidate
// wins ties), then refit once with the winner.
//
// Candidates with k > n-1 clamp to n-1 neighbors; a dataset smaller than
// the smallest candidate plus one fails with a ModelFittingError.
func (s *Scorer) Run(rows [][]float64) (*Result, error) {
	if s.state != StateUnfit {
		return nil, fmt.Errorf("scorer already ran (state %s)", s.state)
	}
	if len(s.cfg.NeighborCandidates) == 0 {
		return nil, fmt.Errorf("no neighborhood candidates configured")
	}
	n := len(rows)
	if smallest := s.cfg.NeighborCandidates[0]; n <= smallest {
		return nil, &ModelFittingError{K: smallest, Records: n}
	}

	s.state = StateGridSearching
	target := s.cfg.Contamination * 100

	grid := make([]GridResult, 0, len(s.cfg.NeighborCandidates))
	bestIdx := -1
	bestDist := math.Inf(1)
	for _, k := range s.cfg.NeighborCandidates {
		effective := k
		if effective > n-1 {
			effective = n - 1
			logging.Warn().
				Int("k", k).
				Int("effective_k", effective).
				Int("records", n).
				Msg("Neighborhood candidate larger than dataset, clamped")
		}
		scores, err := Compute(rows, effective)
		if err != nil {
			return nil, err
		}
		flags, _ := applyThreshold(scores, s.cfg.Contamination)
		count := 0
		for _, a := range flags {
			if a {
				count++
			}
		}
		pct := float64(count) / float64(n) * 100
		lo, hi := stats.MinMax(scores)
		grid = append(grid, GridResult{
			K:              k,
			EffectiveK:     effective,
			AnomalyCount:   count,
			AnomalyPercent: pct,
			ScoreMin:       lo,
			ScoreMax:       hi,
			ScoreMean:      stats.Mean(scores),
		})

		if d := math.Abs(pct - target); d < bestDist {
			bestDist = d
			bestIdx = len(grid) - 1
		}

		logging.Debug().
			Int("k", k).
			Int("anomalies", count).
			Float64("percent", pct).
			Msg("Neighborhood candidate evaluated")
	}

	s.state = StateFit
	chosen := grid[bestIdx]

	scores, err := Compute(rows, chosen.EffectiveK)
	if err != nil {
		return nil, err
	}
	flags, threshold := applyThreshold(scores, s.cfg.Contamination)
	count := 0
	for _, a := range flags {
		if a {
			count++
		}
	}
	s.state = StateScored

	logging.Info().
		Int("chosen_k", chosen.K).
		Int("anomalies", count).
		Float64("percent", float64(count)/float64(n)*100).
		Float64("threshold", threshold).
		Msg("Outlier scoring committed")

	return &Result{
		ChosenK:        chosen.K,
		Contamination:  s.cfg.Contamination,
		Threshold:      threshold,
		Grid:           grid,
		Scores:         scores,
		IsAnomaly:      flags,
		AnomalyCount:   count,
		AnomalyPercent: float64(count) / float64(n) * 100,
	}, nil
}

// applyThreshold flags the contamination fraction with the lowest density
// standing. The cut is the interpolated percentile of the negated factors
// at 100*contamination, applied strictly, mirroring the offset convention
// of contamination-thresholded LOF estimators.
func applyThreshold(scores []float64, contamination float64) ([]bool, float64) {
	nof := make([]float64, len(scores))
	for i, s := range scores {
		nof[i] = -s
	}
	offset := stats.Percentile(nof, contamination*100)
	flags := make([]bool, len(scores))
	for i := range nof {
		flags[i] = nof[i] < offset
	}
	return flags, offset
}
