package collector

import (
	"context"

	"pricecast/internal/model"
)

// Fetcher supplies daily closing prices, oldest first.
type Fetcher interface {
	FetchDailyCloses(ctx context.Context, symbol string, days int) ([]model.Observation, error)
	Name() string
}
