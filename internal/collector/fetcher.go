package collector

import (
	"context"

	"StockAnalytics/internal/model"
)

// Fetcher defines the interface for fetching daily price history.
// Period uses the provider range vocabulary: 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol, period string) ([]model.RawRecord, error)
	Name() string
}
