package model

import "time"

// Observation is one known (date, close) pair from the historical series.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ForecastPoint is a single predicted value for a trading day.
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Date truncates t to a UTC calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Date(t), nil
}

// DateLayout is the canonical date format used on every external surface.
const DateLayout = "2006-01-02"
