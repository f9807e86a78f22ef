// Package oracle wraps trained sequence models behind a single contract:
// a window of normalized values in, one normalized value out.
package oracle

import (
	"context"
	"fmt"
	"math"
)

// Oracle predicts the next normalized value from an oldest-first window.
// Implementations must be safe for concurrent use and deterministic for a
// given input.
type Oracle interface {
	Predict(ctx context.Context, window []float64) (float64, error)
}

// Func adapts a plain function into an Oracle.
type Func func(window []float64) (float64, error)

func (f Func) Predict(_ context.Context, window []float64) (float64, error) {
	return f(window)
}

// InferenceError reports a model that rejected its input or failed to
// produce a usable output.
type InferenceError struct {
	Op  string
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func inferenceErr(op string, format string, args ...any) error {
	return &InferenceError{Op: op, Err: fmt.Errorf(format, args...)}
}

// checkShape validates the window against the model's declared input length.
func checkShape(op string, window []float64, want int) error {
	if len(window) == 0 {
		return inferenceErr(op, "empty window")
	}
	if want > 0 && len(window) != want {
		return inferenceErr(op, "window length %d, model expects %d", len(window), want)
	}
	return nil
}

// checkOutput rejects NaN and Inf predictions.
func checkOutput(op string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return inferenceErr(op, "non-finite prediction %v", v)
	}
	return nil
}
