// Package forecast runs the autoregressive, calendar-aware forecast loop.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"pricecast/internal/calendar"
	"pricecast/internal/logger"
	"pricecast/internal/model"
	"pricecast/internal/oracle"
	"pricecast/internal/scaler"
	"pricecast/internal/series"
	"pricecast/internal/window"
)

const (
	DefaultWindowSize      = 60
	DefaultMaxForecastDays = 15
)

// Options configures an Engine.
type Options struct {
	WindowSize      int               // trailing observations fed to the model
	MaxForecastDays int               // calendar days past the last known date
	Calendar        calendar.Calendar // nil means Monday–Friday
}

// Engine is the immutable forecasting context for one historical snapshot:
// the series, the scaler fitted on it, the model, and the limits. It is safe
// for concurrent use; reloading history means building a new Engine.
type Engine struct {
	series     *series.Series
	scaler     *scaler.MinMax
	oracle     oracle.Oracle
	cal        calendar.Calendar
	windowSize int
	maxDays    int
	seed       window.Window
	horizon    time.Time
}

// NewEngine fits the scaler on the full value column and seeds the window
// from the last WindowSize observations.
func NewEngine(s *series.Series, o oracle.Oracle, opts Options) (*Engine, error) {
	if s == nil {
		return nil, errors.New("forecast: nil series")
	}
	if o == nil {
		return nil, errors.New("forecast: nil oracle")
	}
	if opts.WindowSize <= 0 {
		return nil, fmt.Errorf("forecast: window size must be positive, got %d", opts.WindowSize)
	}
	if opts.MaxForecastDays <= 0 {
		return nil, fmt.Errorf("forecast: max forecast days must be positive, got %d", opts.MaxForecastDays)
	}
	if opts.Calendar == nil {
		opts.Calendar = calendar.Weekdays{}
	}

	values := s.Values()
	sc, err := scaler.Fit(values)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	if len(values) < opts.WindowSize {
		return nil, fmt.Errorf("%w: have %d observations, window needs %d",
			ErrInsufficientHistory, len(values), opts.WindowSize)
	}
	seed, err := window.Initialize(sc.NormalizeAll(values[len(values)-opts.WindowSize:]), opts.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("seed window: %w", err)
	}

	return &Engine{
		series:     s,
		scaler:     sc,
		oracle:     o,
		cal:        opts.Calendar,
		windowSize: opts.WindowSize,
		maxDays:    opts.MaxForecastDays,
		seed:       seed,
		horizon:    s.Last().Date.AddDate(0, 0, opts.MaxForecastDays),
	}, nil
}

func (e *Engine) Series() *series.Series { return e.series }

func (e *Engine) Scaler() *scaler.MinMax { return e.scaler }

func (e *Engine) WindowSize() int { return e.windowSize }

func (e *Engine) MaxForecastDays() int { return e.maxDays }

func (e *Engine) LastKnown() model.Observation { return e.series.Last() }

// HorizonBound is the furthest end date a forecast may be requested for.
func (e *Engine) HorizonBound() time.Time { return e.horizon }

// Bounds returns the earliest and latest end dates Forecast accepts.
func (e *Engine) Bounds() (minDate, maxDate time.Time) {
	return e.series.Last().Date.AddDate(0, 0, 1), e.horizon
}

// Validate checks an end date against the last known date and the horizon.
func (e *Engine) Validate(end time.Time) error {
	end = model.Date(end)
	last := e.series.Last().Date
	switch {
	case end.Equal(last):
		return fmt.Errorf("%w (%s)", ErrNoForecastNeeded, end.Format(model.DateLayout))
	case end.Before(last):
		return fmt.Errorf("%w: %s is before %s", ErrInvalidRange,
			end.Format(model.DateLayout), last.Format(model.DateLayout))
	case end.After(e.horizon):
		return fmt.Errorf("%w: %s is after %s", ErrOutOfHorizon,
			end.Format(model.DateLayout), e.horizon.Format(model.DateLayout))
	}
	return nil
}

// Forecast predicts one value per trading day in (last known date, end].
// Each prediction is fed back into the window for the next step. On any
// model failure nothing is returned.
func (e *Engine) Forecast(ctx context.Context, end time.Time) (*model.Forecast, error) {
	end = model.Date(end)
	if err := e.Validate(end); err != nil {
		return nil, err
	}

	last := e.series.Last()
	w := e.seed
	points := make([]model.ForecastPoint, 0, e.maxDays)
	steps := 0

	for d := range calendar.Enumerate(last.Date.AddDate(0, 0, 1), end) {
		steps++
		if steps > e.maxDays {
			return nil, fmt.Errorf("%w: step limit %d reached", ErrOutOfHorizon, e.maxDays)
		}
		if !e.cal.IsTradingDay(d) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := e.predict(ctx, w)
		if err != nil {
			return nil, fmt.Errorf("forecast %s: %w", d.Format(model.DateLayout), err)
		}
		points = append(points, model.ForecastPoint{Date: d, Value: e.scaler.Denormalize(next)})
		w = w.Advance(next)
	}

	logger.WithComponent("forecast").WithFields(map[string]interface{}{
		"last_known": last.Date.Format(model.DateLayout),
		"end":        end.Format(model.DateLayout),
		"points":     len(points),
	}).Debug("forecast complete")

	return &model.Forecast{
		LastKnown:  last,
		EndDate:    end,
		HorizonEnd: e.horizon,
		WindowSize: e.windowSize,
		Points:     points,
	}, nil
}

// ForecastToHorizon forecasts through the horizon bound.
func (e *Engine) ForecastToHorizon(ctx context.Context) (*model.Forecast, error) {
	return e.Forecast(ctx, e.horizon)
}

func (e *Engine) predict(ctx context.Context, w window.Window) (float64, error) {
	y, err := e.oracle.Predict(ctx, w.Values())
	if err != nil {
		var ie *oracle.InferenceError
		if errors.As(err, &ie) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, &oracle.InferenceError{Op: "predict", Err: err}
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, &oracle.InferenceError{Op: "predict", Err: fmt.Errorf("non-finite prediction %v", y)}
	}
	return y, nil
}
