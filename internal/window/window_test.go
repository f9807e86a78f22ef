package window

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_TakesTail(t *testing.T) {
	w, err := Initialize([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, w.Values())
	assert.Equal(t, 5.0, w.Latest())
}

func TestInitialize_Errors(t *testing.T) {
	_, err := Initialize([]float64{1, 2}, 3)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = Initialize([]float64{1, 2}, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestInitialize_DoesNotAliasInput(t *testing.T) {
	in := []float64{1, 2, 3}
	w, err := Initialize(in, 3)
	require.NoError(t, err)
	in[2] = 99
	assert.Equal(t, []float64{1, 2, 3}, w.Values())
}

func TestAdvance_IsFunctional(t *testing.T) {
	w, err := Initialize([]float64{0.1, 0.2, 0.3}, 3)
	require.NoError(t, err)

	next := w.Advance(0.4)
	assert.Equal(t, []float64{0.2, 0.3, 0.4}, next.Values())
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, w.Values(), "original window must be unchanged")

	// Branching from the same window yields independent results.
	other := w.Advance(0.9)
	assert.Equal(t, []float64{0.2, 0.3, 0.9}, other.Values())
	assert.Equal(t, []float64{0.2, 0.3, 0.4}, next.Values())
}

func TestAdvance_LengthInvariant(t *testing.T) {
	w, err := Initialize(make([]float64, 60), 60)
	require.NoError(t, err)
	for i := 0; i < 500; i++ {
		w = w.Advance(float64(i))
		require.Equal(t, 60, w.Len())
	}
	assert.Equal(t, 499.0, w.Latest())
	assert.Equal(t, 440.0, w.Values()[0])
}

func TestAdvance_SizeOne(t *testing.T) {
	w, err := Initialize([]float64{7}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{8}, w.Advance(8).Values())
}

func TestValues_ReturnsCopy(t *testing.T) {
	w, err := Initialize([]float64{1, 2}, 2)
	require.NoError(t, err)
	v := w.Values()
	v[0] = 42
	assert.Equal(t, []float64{1, 2}, w.Values())
}

func TestZeroWindow(t *testing.T) {
	var w Window
	assert.Zero(t, w.Len())
	assert.True(t, math.IsNaN(w.Latest()))

	next := w.Advance(0.5)
	assert.Zero(t, next.Len())
	assert.Empty(t, next.Values())
}
