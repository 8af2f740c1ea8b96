package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v6"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	"StockAnalytics/internal/model"
)

var (
	_ Fetcher = (*YahooFetcher)(nil)
	_ Fetcher = (*RESTFetcher)(nil)
	_ Fetcher = (*YFinanceFetcher)(nil)
	_ Fetcher = (*MockFetcher)(nil)
)

// YFinanceFetcher implements Fetcher using the go-yfinance client, which
// handles Yahoo's cookie and crumb negotiation.
type YFinanceFetcher struct {
	SymbolMap map[string]string
}

func NewYFinanceFetcher() *YFinanceFetcher {
	return &YFinanceFetcher{SymbolMap: map[string]string{
		"SPX500": "^GSPC",
		"SPX":    "^GSPC",
		"SP500":  "^GSPC",
	}}
}

func (f *YFinanceFetcher) Name() string { return "yfinance" }

func (f *YFinanceFetcher) FetchDailyBars(ctx context.Context, symbol, period string) ([]model.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	yahooSymbol := symbol
	if mapped, ok := f.SymbolMap[symbol]; ok {
		yahooSymbol = mapped
	}

	t, err := ticker.New(yahooSymbol)
	if err != nil {
		return nil, fmt.Errorf("yfinance ticker %s: %w", yahooSymbol, err)
	}
	defer t.Close()

	bars, err := t.History(models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	})
	if err != nil {
		return nil, fmt.Errorf("yfinance history %s: %w", yahooSymbol, err)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	records := make([]model.RawRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, model.RawRecord{
			Date:   b.Date.UTC().Format(time.RFC3339),
			Open:   null.FloatFrom(b.Open),
			High:   null.FloatFrom(b.High),
			Low:    null.FloatFrom(b.Low),
			Close:  null.FloatFrom(b.Close),
			Volume: null.FloatFrom(float64(b.Volume)),
		})
	}
	return records, nil
}
