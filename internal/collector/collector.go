package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"StockAnalytics/internal/model"
	"StockAnalytics/internal/source"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price   float64
	Records map[string][]model.RawRecord // per symbol; nil falls back to generated bars
	Err     error
	Days    int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol, _ string) ([]model.RawRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if recs, ok := m.Records[symbol]; ok {
		return recs, nil
	}
	days := m.Days
	if days == 0 {
		days = 30
	}
	return generateMockRecords(m.Price, days), nil
}

func generateMockRecords(basePrice float64, count int) []model.RawRecord {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := make([]model.RawRecord, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		recs[i] = model.RawRecord{
			Date:   start.AddDate(0, 0, i).Format(time.RFC3339),
			Open:   null.FloatFrom(p * 0.999),
			High:   null.FloatFrom(p * 1.005),
			Low:    null.FloatFrom(p * 0.995),
			Close:  null.FloatFrom(p),
			Volume: null.FloatFrom(1000000),
		}
	}
	return recs
}

// RawFileName returns the raw artifact name for ticker fetched at ts,
// e.g. AAPL_20240105_153000.csv.
func RawFileName(ticker string, ts time.Time) string {
	return fmt.Sprintf("%s_%s.csv", strings.ToUpper(ticker), ts.UTC().Format("20060102_150405"))
}

// Collector downloads price history and stores it as raw CSV files.
type Collector struct {
	Fetcher Fetcher
	RawDir  string
	Period  string
	// Limiter throttles fetches when set. It is shared by concurrent runs.
	Limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, rawDir, period string, logger zerolog.Logger) *Collector {
	return &Collector{
		Fetcher: fetcher,
		RawDir:  rawDir,
		Period:  period,
		logger:  logger.With().Str("component", "collector").Logger(),
	}
}

// Collect fetches ticker's history and writes it under RawDir. It returns
// the raw file path and the number of rows stored.
func (c *Collector) Collect(ctx context.Context, ticker string, now time.Time) (string, int, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return "", 0, fmt.Errorf("wait for fetch slot: %w", err)
		}
	}
	records, err := c.Fetcher.FetchDailyBars(ctx, ticker, c.Period)
	if err != nil {
		return "", 0, fmt.Errorf("fetch daily bars for %s: %w", ticker, err)
	}
	if len(records) == 0 {
		c.logger.Warn().Str("ticker", ticker).Str("fetcher", c.Fetcher.Name()).Msg("no bars returned")
	}

	path := filepath.Join(c.RawDir, RawFileName(ticker, now))
	if err := source.WriteRawCSV(path, records); err != nil {
		return "", 0, err
	}
	c.logger.Info().
		Str("ticker", ticker).
		Str("fetcher", c.Fetcher.Name()).
		Int("rows", len(records)).
		Str("path", path).
		Msg("raw data saved")
	return path, len(records), nil
}
