// Package window implements the fixed-length buffer of normalized values
// that the model consumes on each step.
package window

import (
	"errors"
	"math"
)

var (
	ErrInsufficientHistory = errors.New("window: not enough history to fill the window")
	ErrInvalidSize         = errors.New("window: size must be positive")
)

// Window is an oldest-first buffer of exactly Len() values. Advance never
// mutates the receiver, so a Window may be shared freely.
type Window struct {
	values []float64
}

// Initialize fills a window from the last size entries of values.
func Initialize(values []float64, size int) (Window, error) {
	if size <= 0 {
		return Window{}, ErrInvalidSize
	}
	if len(values) < size {
		return Window{}, ErrInsufficientHistory
	}
	buf := make([]float64, size)
	copy(buf, values[len(values)-size:])
	return Window{values: buf}, nil
}

// Advance returns a new window with the oldest value dropped and next appended.
// The zero Window has no capacity and stays empty.
func (w Window) Advance(next float64) Window {
	if len(w.values) == 0 {
		return Window{}
	}
	buf := make([]float64, len(w.values))
	copy(buf, w.values[1:])
	buf[len(buf)-1] = next
	return Window{values: buf}
}

func (w Window) Len() int { return len(w.values) }

// Values returns a copy of the buffer, oldest first.
func (w Window) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// Latest returns the newest value in the window, or NaN for the zero Window.
func (w Window) Latest() float64 {
	if len(w.values) == 0 {
		return math.NaN()
	}
	return w.values[len(w.values)-1]
}
