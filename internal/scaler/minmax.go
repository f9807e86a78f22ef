// Package scaler implements the min-max feature scaling applied to the
// target column before it reaches the model.
package scaler

import (
	"errors"
	"math"
)

var (
	ErrEmptyInput      = errors.New("scaler: no values to fit")
	ErrDegenerateRange = errors.New("scaler: historical range is degenerate (max == min)")
	ErrNonFiniteInput  = errors.New("scaler: non-finite value in input")
)

// MinMax maps the fitted [min, max] range onto [0, 1]. It is immutable after Fit.
type MinMax struct {
	min float64
	max float64
}

// Fit scans every value and records the observed range. The input slice is
// not modified.
func Fit(values []float64) (*MinMax, error) {
	if len(values) == 0 {
		return nil, ErrEmptyInput
	}
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrNonFiniteInput
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return nil, ErrDegenerateRange
	}
	return &MinMax{min: lo, max: hi}, nil
}

func (s *MinMax) Min() float64 { return s.min }
func (s *MinMax) Max() float64 { return s.max }

// Normalize maps x into the unit range. Values outside the fitted range map
// linearly outside [0, 1].
func (s *MinMax) Normalize(x float64) float64 {
	return (x - s.min) / (s.max - s.min)
}

// Denormalize is the inverse of Normalize.
func (s *MinMax) Denormalize(x float64) float64 {
	return x*(s.max-s.min) + s.min
}

// NormalizeAll returns a normalized copy of values.
func (s *MinMax) NormalizeAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Normalize(v)
	}
	return out
}
