package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecast/internal/model"
)

func day(s string) time.Time {
	t, _ := time.Parse(model.DateLayout, s)
	return t
}

func TestNew_CopiesAndTruncates(t *testing.T) {
	obs := []model.Observation{
		{Date: time.Date(2024, 11, 27, 15, 30, 0, 0, time.UTC), Value: 71},
		{Date: day("2024-11-28"), Value: 72},
		{Date: day("2024-11-29"), Value: 72.5},
	}
	s, err := New("BRENT", obs)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, day("2024-11-27"), s.First().Date)
	assert.Equal(t, model.Observation{Date: day("2024-11-29"), Value: 72.5}, s.Last())

	obs[2].Value = 0
	assert.Equal(t, 72.5, s.Last().Value, "series must not alias its input")
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name string
		obs  []model.Observation
		want error
	}{
		{"empty", nil, ErrEmpty},
		{"duplicate", []model.Observation{{Date: day("2024-11-28"), Value: 1}, {Date: day("2024-11-28"), Value: 2}}, ErrUnordered},
		{"descending", []model.Observation{{Date: day("2024-11-29"), Value: 1}, {Date: day("2024-11-28"), Value: 2}}, ErrUnordered},
		{"nan", []model.Observation{{Date: day("2024-11-28"), Value: math.NaN()}}, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("X", tt.obs)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTailAndValues(t *testing.T) {
	s, err := New("X", []model.Observation{
		{Date: day("2024-11-25"), Value: 1},
		{Date: day("2024-11-26"), Value: 2},
		{Date: day("2024-11-27"), Value: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 3}, s.Values())
	assert.Len(t, s.Tail(2), 2)
	assert.Equal(t, 2.0, s.Tail(2)[0].Value)
	assert.Len(t, s.Tail(10), 3)
	assert.Nil(t, s.Tail(0))

	tail := s.Tail(1)
	tail[0].Value = 99
	assert.Equal(t, 3.0, s.Last().Value)
}
