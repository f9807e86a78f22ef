// Package calendar decides which calendar dates are eligible forecast days.
//
// Trading days are Monday through Friday. There is no holiday table and no
// exchange locale.
package calendar

import (
	"iter"
	"time"

	"pricecast/internal/model"
)

// Calendar reports whether a date may carry a forecast point.
type Calendar interface {
	IsTradingDay(date time.Time) bool
}

// Weekdays is the Monday–Friday calendar.
type Weekdays struct{}

func (Weekdays) IsTradingDay(date time.Time) bool {
	return IsTradingDay(date)
}

// IsTradingDay reports whether date falls on Monday through Friday.
func IsTradingDay(date time.Time) bool {
	wd := date.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// Enumerate yields every calendar date from start through end inclusive, in
// ascending order. An inverted range yields nothing. The returned sequence
// can be ranged over any number of times.
func Enumerate(start, end time.Time) iter.Seq[time.Time] {
	start, end = model.Date(start), model.Date(end)
	return func(yield func(time.Time) bool) {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// CountTradingDays counts the trading days strictly after `after` and up to
// and including `through`.
func CountTradingDays(cal Calendar, after, through time.Time) int {
	n := 0
	for d := range Enumerate(model.Date(after).AddDate(0, 0, 1), through) {
		if cal.IsTradingDay(d) {
			n++
		}
	}
	return n
}
