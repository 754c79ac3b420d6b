// Auditrail - Behavioral Anomaly Detection for Database and Login Activity Logs
// Copyright 2026 Auditrail contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditrail/auditrail

// Package scale fits and applies per-column z-score standardization. The
// fitted parameters persist as JSON so a later batch can be transformed
// with the same model instead of re-fitting (replay semantics).
package scale

import (
	"fmt"
	"math"

	"github.com/auditrail/auditrail/internal/artifact"
	"github.com/auditrail/auditrail/internal/features"
	"github.com/auditrail/auditrail/internal/logging"
	"github.com/auditrail/auditrail/internal/stats"
)

// Model holds the fitted standardization parameters, one entry per feature
// column in FeatureNames order.
type Model struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
	Variance     []float64 `json:"variance"`
}

// epsilon is the double-precision machine epsilon.
var epsilon = math.Nextafter(1, 2) - 1

// nearZeroScale reports whether a scale is indistinguishable from the
// floating-point rounding of a constant column. A column constant at a
// value with no exact binary representation (0.7, 1/3) accumulates a tiny
// nonzero variance, so an exact == 0 check is not enough.
func nearZeroScale(scale, mean float64) bool {
	return scale <= 10*epsilon*math.Max(math.Abs(mean), 1)
}

// FitTransform fits the model over the dataset and returns the standardized
// copy. Zero- and near-zero-variance columns get scale 1, so a constant
// column centers to 0 instead of dividing by zero or amplifying rounding
// noise into full-size values.
func FitTransform(ds *features.Dataset) (*features.Dataset, *Model) {
	cols := len(ds.Names)
	m := &Model{
		FeatureNames: append([]string(nil), ds.Names...),
		Mean:         make([]float64, cols),
		Scale:        make([]float64, cols),
		Variance:     make([]float64, cols),
	}

	col := make([]float64, ds.Len())
	for j := 0; j < cols; j++ {
		for i, row := range ds.Rows {
			col[i] = row[j]
		}
		m.Mean[j] = stats.Mean(col)
		m.Variance[j] = stats.PopVariance(col)
		m.Scale[j] = math.Sqrt(m.Variance[j])
		if nearZeroScale(m.Scale[j], m.Mean[j]) {
			m.Scale[j] = 1
		}
	}

	out, err := m.Transform(ds)
	if err != nil {
		// Unreachable: the model was just fit on this exact schema.
		panic(err)
	}

	logging.Debug().
		Int("rows", ds.Len()).
		Int("features", cols).
		Msg("Feature matrix standardized")

	return out, m
}

// Transform applies the fitted parameters to a dataset with the same
// feature schema. A schema mismatch is a precondition violation and fails
// with a SchemaError.
func (m *Model) Transform(ds *features.Dataset) (*features.Dataset, error) {
	if len(ds.Names) != len(m.FeatureNames) {
		return nil, &features.SchemaError{Kind: ds.Kind, Column: fmt.Sprintf("width %d != %d", len(ds.Names), len(m.FeatureNames))}
	}
	for j, name := range m.FeatureNames {
		if ds.Names[j] != name {
			return nil, &features.SchemaError{Kind: ds.Kind, Column: name}
		}
	}

	out := &features.Dataset{
		Kind:  ds.Kind,
		Names: append([]string(nil), ds.Names...),
		Rows:  make([][]float64, ds.Len()),
		Meta:  append([]features.RowMeta(nil), ds.Meta...),
	}
	for i, row := range ds.Rows {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - m.Mean[j]) / m.Scale[j]
		}
		out.Rows[i] = scaled
	}
	return out, nil
}

// Save writes the model as JSON, atomically: the file appears complete or
// not at all.
func (m *Model) Save(path string) error {
	return artifact.WriteJSON(path, m)
}

// LoadModel reads a previously saved model.
func LoadModel(path string) (*Model, error) {
	m := &Model{}
	if err := artifact.ReadJSON(path, m); err != nil {
		return nil, err
	}
	if len(m.Mean) != len(m.FeatureNames) || len(m.Scale) != len(m.FeatureNames) {
		return nil, fmt.Errorf("scaler model %s is inconsistent: %d names, %d means, %d scales",
			path, len(m.FeatureNames), len(m.Mean), len(m.Scale))
	}
	return m, nil
}
