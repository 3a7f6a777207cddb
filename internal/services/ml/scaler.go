package ml

import (
	"fmt"
	"math"

	"PricePulse/internal/domain/service"
)

// StandardScaler centers each feature column to zero mean and unit
// variance. Statistics come from the fit set only; loading a stored
// scaler never re-fits.
type StandardScaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

var _ service.Scaler = (*StandardScaler)(nil)

// FitScaler computes per-column mean and population stddev. Columns with
// no variance get scale 1 so Transform stays finite.
func FitScaler(rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("fit scaler: empty matrix")
	}
	cols := len(rows[0])
	s := &StandardScaler{
		Means: make([]float64, cols),
		Stds:  make([]float64, cols),
	}

	n := float64(len(rows))
	for c := 0; c < cols; c++ {
		sum := 0.0
		for _, row := range rows {
			sum += row[c]
		}
		s.Means[c] = sum / n
	}
	for c := 0; c < cols; c++ {
		ss := 0.0
		for _, row := range rows {
			d := row[c] - s.Means[c]
			ss += d * d
		}
		std := math.Sqrt(ss / n)
		if std < 1e-10 {
			std = 1.0
		}
		s.Stds[c] = std
	}
	return s, nil
}

// Transform returns the standardized copy of one feature row.
func (s *StandardScaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for i, v := range row {
		if i >= len(s.Means) {
			out[i] = v
			continue
		}
		out[i] = (v - s.Means[i]) / s.Stds[i]
	}
	return out
}

// TransformMatrix standardizes every row.
func (s *StandardScaler) TransformMatrix(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.Transform(row)
	}
	return out
}
