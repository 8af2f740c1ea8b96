package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"StockAnalytics/internal/model"
)

// RESTFetcher implements Fetcher against a bars REST API that returns
// a JSON array of {timestamp, open, high, low, close, volume}.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API.
type restBar struct {
	Timestamp int64      `json:"timestamp"`
	Open      null.Float `json:"open"`
	High      null.Float `json:"high"`
	Low       null.Float `json:"low"`
	Close     null.Float `json:"close"`
	Volume    null.Float `json:"volume"`
}

// sessions per period, roughly 21 trading days a month
var periodSessions = map[string]int{
	"1mo": 21,
	"3mo": 63,
	"6mo": 126,
	"1y":  252,
	"2y":  504,
	"5y":  1260,
	"10y": 2520,
}

// PeriodLimit converts a period into a bar count. Zero means no limit.
func PeriodLimit(period string, now time.Time) int {
	if n, ok := periodSessions[period]; ok {
		return n
	}
	if period == "ytd" {
		return now.YearDay()*5/7 + 1
	}
	return 0
}

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, symbol, period string) ([]model.RawRecord, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	if limit := PeriodLimit(period, time.Now()); limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var bars []restBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}

	// Ensure chronological order
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	records := make([]model.RawRecord, len(bars))
	for i, b := range bars {
		records[i] = model.RawRecord{
			Date:   time.Unix(b.Timestamp, 0).UTC().Format(time.RFC3339),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return records, nil
}
