package forecast

import (
	"errors"
	"fmt"

	"pricecast/internal/scaler"
	"pricecast/internal/window"
)

var (
	// ErrInvalidRange is returned when the requested end date does not lie
	// after the last known date.
	ErrInvalidRange = errors.New("forecast: end date must be after the last known date")
	// ErrNoForecastNeeded is the ErrInvalidRange case where the end date is
	// the last known date itself.
	ErrNoForecastNeeded = fmt.Errorf("%w: no forecast needed", ErrInvalidRange)
	ErrOutOfHorizon     = errors.New("forecast: end date is beyond the forecast horizon")

	ErrDegenerateRange     = scaler.ErrDegenerateRange
	ErrInsufficientHistory = window.ErrInsufficientHistory
)
