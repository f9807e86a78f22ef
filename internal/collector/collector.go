package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"pricecast/internal/calendar"
	"pricecast/internal/logger"
	"pricecast/internal/model"
	"pricecast/internal/series"
)

// MockFetcher returns deterministic synthetic closes on weekdays for
// development and testing.
type MockFetcher struct {
	Price float64
	End   time.Time // last date of the series; zero means the most recent weekday
	Data  []model.Observation
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyCloses(_ context.Context, _ string, days int) ([]model.Observation, error) {
	if m.Data != nil {
		return m.Data, nil
	}
	end := m.End
	if end.IsZero() {
		end = time.Now()
	}
	return generateMockCloses(m.Price, model.Date(end), days), nil
}

func generateMockCloses(basePrice float64, end time.Time, count int) []model.Observation {
	dates := make([]time.Time, 0, count)
	for d := end; len(dates) < count; d = d.AddDate(0, 0, -1) {
		if calendar.IsTradingDay(d) {
			dates = append(dates, d)
		}
	}
	obs := make([]model.Observation, count)
	for i := 0; i < count; i++ {
		obs[i] = model.Observation{
			Date:  dates[count-1-i],
			Value: basePrice * (1 + 0.02*math.Sin(float64(i)/7) + float64(i-count/2)*0.0005),
		}
	}
	return obs
}

// Collector loads the historical series the engine is seeded from.
type Collector struct {
	Fetcher      Fetcher
	Symbol       string
	LookbackDays int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string, lookbackDays int) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol, LookbackDays: lookbackDays}
}

// Load fetches closes and returns them as a validated, immutable Series.
func (c *Collector) Load(ctx context.Context) (*series.Series, error) {
	obs, err := c.Fetcher.FetchDailyCloses(ctx, c.Symbol, c.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetch daily closes: %w", err)
	}
	s, err := series.New(c.Symbol, obs)
	if err != nil {
		return nil, fmt.Errorf("build series from %s: %w", c.Fetcher.Name(), err)
	}
	logger.WithComponent("collector").WithFields(map[string]interface{}{
		"source":  c.Fetcher.Name(),
		"symbol":  c.Symbol,
		"points":  s.Len(),
		"last":    s.Last().Date.Format(model.DateLayout),
		"closing": s.Last().Value,
	}).Info("historical series loaded")
	return s, nil
}
