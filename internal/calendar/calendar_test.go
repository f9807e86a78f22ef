package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pricecast/internal/model"
)

func day(s string) time.Time {
	t, _ := time.Parse(model.DateLayout, s)
	return t
}

func TestIsTradingDay(t *testing.T) {
	tests := []struct {
		date string
		want bool
	}{
		{"2024-11-25", true},  // Monday
		{"2024-11-26", true},  // Tuesday
		{"2024-11-27", true},  // Wednesday
		{"2024-11-28", true},  // Thursday, US holiday but still a trading day here
		{"2024-11-29", true},  // Friday
		{"2024-11-30", false}, // Saturday
		{"2024-12-01", false}, // Sunday
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTradingDay(day(tt.date)))
			assert.Equal(t, tt.want, Weekdays{}.IsTradingDay(day(tt.date)))
		})
	}
}

func TestEnumerate_Inclusive(t *testing.T) {
	var got []string
	for d := range Enumerate(day("2024-11-29"), day("2024-12-02")) {
		got = append(got, d.Format(model.DateLayout))
	}
	assert.Equal(t, []string{"2024-11-29", "2024-11-30", "2024-12-01", "2024-12-02"}, got)
}

func TestEnumerate_SingleDay(t *testing.T) {
	n := 0
	for range Enumerate(day("2024-11-29"), day("2024-11-29")) {
		n++
	}
	assert.Equal(t, 1, n)
}

func TestEnumerate_InvertedIsEmpty(t *testing.T) {
	n := 0
	for range Enumerate(day("2024-12-02"), day("2024-11-29")) {
		n++
	}
	assert.Zero(t, n)
}

func TestEnumerate_Restartable(t *testing.T) {
	seq := Enumerate(day("2024-12-01"), day("2024-12-05"))
	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	assert.Equal(t, 5, count())
	assert.Equal(t, 5, count())
}

func TestEnumerate_EarlyStop(t *testing.T) {
	var got []time.Time
	for d := range Enumerate(day("2024-12-01"), day("2024-12-31")) {
		got = append(got, d)
		if len(got) == 3 {
			break
		}
	}
	assert.Len(t, got, 3)
}

func TestCountTradingDays(t *testing.T) {
	tests := []struct {
		after, through string
		want           int
	}{
		{"2024-11-29", "2024-11-30", 0},
		{"2024-11-29", "2024-12-01", 0},
		{"2024-11-29", "2024-12-02", 1},
		{"2024-11-29", "2024-12-13", 10},
		{"2024-11-29", "2024-12-14", 10},
		{"2024-11-29", "2024-11-29", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CountTradingDays(Weekdays{}, day(tt.after), day(tt.through)), "%s..%s", tt.after, tt.through)
	}
}
