// Package series holds the immutable historical price series that seeds
// every forecast.
package series

import (
	"errors"
	"fmt"
	"math"

	"pricecast/internal/model"
)

var (
	ErrEmpty        = errors.New("series: no observations")
	ErrUnordered    = errors.New("series: dates must be strictly increasing")
	ErrInvalidValue = errors.New("series: non-finite value")
)

// Series is an ordered, read-only view of known observations.
type Series struct {
	symbol string
	obs    []model.Observation
}

// New validates and copies obs. Dates are truncated to UTC calendar dates and
// must be strictly increasing; gaps (weekends, holidays) are allowed.
func New(symbol string, obs []model.Observation) (*Series, error) {
	if len(obs) == 0 {
		return nil, ErrEmpty
	}
	cp := make([]model.Observation, len(obs))
	for i, o := range obs {
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			return nil, fmt.Errorf("%w at %s", ErrInvalidValue, o.Date.Format(model.DateLayout))
		}
		cp[i] = model.Observation{Date: model.Date(o.Date), Value: o.Value}
		if i > 0 && !cp[i].Date.After(cp[i-1].Date) {
			return nil, fmt.Errorf("%w: %s follows %s", ErrUnordered,
				cp[i].Date.Format(model.DateLayout), cp[i-1].Date.Format(model.DateLayout))
		}
	}
	return &Series{symbol: symbol, obs: cp}, nil
}

func (s *Series) Symbol() string { return s.symbol }

func (s *Series) Len() int { return len(s.obs) }

func (s *Series) At(i int) model.Observation { return s.obs[i] }

func (s *Series) First() model.Observation { return s.obs[0] }

func (s *Series) Last() model.Observation { return s.obs[len(s.obs)-1] }

// Values returns a copy of the value column.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.obs))
	for i, o := range s.obs {
		out[i] = o.Value
	}
	return out
}

// Tail returns a copy of the last n observations (all of them if n >= Len).
func (s *Series) Tail(n int) []model.Observation {
	if n <= 0 {
		return nil
	}
	start := len(s.obs) - n
	if start < 0 {
		start = 0
	}
	out := make([]model.Observation, len(s.obs)-start)
	copy(out, s.obs[start:])
	return out
}
