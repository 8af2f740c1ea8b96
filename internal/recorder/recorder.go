package recorder

import (
	"context"
	"time"

	"github.com/guregu/null/v6"

	"StockAnalytics/internal/model"
)

// StockRow is one persisted session of an enriched series.
type StockRow struct {
	ID             int64      `json:"id"`
	Ticker         string     `json:"ticker"`
	Date           time.Time  `json:"date"`
	Open           null.Float `json:"open"`
	High           null.Float `json:"high"`
	Low            null.Float `json:"low"`
	Close          null.Float `json:"close"`
	Volume         null.Float `json:"volume"`
	PriceChangePct null.Float `json:"price_change_pct"`
	SMAShort       null.Float `json:"sma_short"`
	SMALong        null.Float `json:"sma_long"`
}

// RunEvent records the outcome of one ticker run.
type RunEvent struct {
	RunID    string
	Ticker   string
	Status   string // "done" or "failed"
	Stage    string // failed stage, empty on success
	Rows     int
	Artifact string
	Error    string
	Duration time.Duration
}

// Recorder defines the interface for persisting enriched series and run history.
type Recorder interface {
	RecordSeries(ctx context.Context, ticker string, series []model.EnrichedRecord) (int, error)
	RecordRun(ctx context.Context, evt *RunEvent) error
	// SeriesByTicker returns a ticker's rows in ascending date order,
	// restricted to the UTC calendar day of on when it is non-nil.
	SeriesByTicker(ctx context.Context, ticker string, on *time.Time) ([]StockRow, error)
	ListSeries(ctx context.Context, offset, limit int) ([]StockRow, error)
	Close() error
}
