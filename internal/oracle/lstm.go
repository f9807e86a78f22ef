package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// Artifact is the serialized form of a single-layer LSTM with a dense
// regression head over one input feature. Gate blocks follow the Keras
// layout: input, forget, cell, output.
type Artifact struct {
	Name            string      `json:"name"`
	WindowSize      int         `json:"window_size"`
	Units           int         `json:"units"`
	Kernel          [][]float64 `json:"kernel"`           // 1 x 4*units
	RecurrentKernel [][]float64 `json:"recurrent_kernel"` // units x 4*units
	Bias            []float64   `json:"bias"`             // 4*units
	DenseKernel     []float64   `json:"dense_kernel"`     // units
	DenseBias       float64     `json:"dense_bias"`
}

// LSTM runs the forward pass of an Artifact. It holds no mutable state.
type LSTM struct {
	a Artifact
}

// LoadLSTM reads a JSON model artifact from disk.
func LoadLSTM(path string) (*LSTM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	return NewLSTM(a)
}

// NewLSTM validates the artifact dimensions.
func NewLSTM(a Artifact) (*LSTM, error) {
	if a.Units <= 0 {
		return nil, errors.New("model artifact: units must be positive")
	}
	if a.WindowSize < 0 {
		return nil, errors.New("model artifact: window_size must not be negative")
	}
	gates := 4 * a.Units
	if len(a.Kernel) != 1 || len(a.Kernel[0]) != gates {
		return nil, fmt.Errorf("model artifact: kernel must be 1x%d", gates)
	}
	if len(a.RecurrentKernel) != a.Units {
		return nil, fmt.Errorf("model artifact: recurrent_kernel must have %d rows", a.Units)
	}
	for i, row := range a.RecurrentKernel {
		if len(row) != gates {
			return nil, fmt.Errorf("model artifact: recurrent_kernel row %d has %d columns, want %d", i, len(row), gates)
		}
	}
	if len(a.Bias) != gates {
		return nil, fmt.Errorf("model artifact: bias must have %d entries", gates)
	}
	if len(a.DenseKernel) != a.Units {
		return nil, fmt.Errorf("model artifact: dense_kernel must have %d entries", a.Units)
	}
	return &LSTM{a: a}, nil
}

// WindowSize is the input length the artifact was trained on, 0 if unspecified.
func (m *LSTM) WindowSize() int { return m.a.WindowSize }

func (m *LSTM) Name() string { return m.a.Name }

func (m *LSTM) Predict(ctx context.Context, window []float64) (float64, error) {
	if err := checkShape("lstm", window, m.a.WindowSize); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n := m.a.Units
	h := make([]float64, n)
	c := make([]float64, n)
	z := make([]float64, 4*n)

	for _, x := range window {
		for j := range z {
			s := x*m.a.Kernel[0][j] + m.a.Bias[j]
			for k := 0; k < n; k++ {
				s += h[k] * m.a.RecurrentKernel[k][j]
			}
			z[j] = s
		}
		for k := 0; k < n; k++ {
			in := sigmoid(z[k])
			forget := sigmoid(z[n+k])
			cand := math.Tanh(z[2*n+k])
			out := sigmoid(z[3*n+k])
			c[k] = forget*c[k] + in*cand
			h[k] = out * math.Tanh(c[k])
		}
	}

	y := m.a.DenseBias
	for k := 0; k < n; k++ {
		y += h[k] * m.a.DenseKernel[k]
	}
	if err := checkOutput("lstm", y); err != nil {
		return 0, err
	}
	return y, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
