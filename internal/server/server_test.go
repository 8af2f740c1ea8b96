package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockAnalytics/internal/metrics"
	"StockAnalytics/internal/model"
	"StockAnalytics/internal/pipeline"
	"StockAnalytics/internal/recorder"
)

type fakeStore struct {
	rows  map[string][]recorder.StockRow
	gotOn *time.Time
}

func (f *fakeStore) SeriesByTicker(_ context.Context, ticker string, on *time.Time) ([]recorder.StockRow, error) {
	f.gotOn = on
	return f.rows[ticker], nil
}

func (f *fakeStore) ListSeries(_ context.Context, offset, limit int) ([]recorder.StockRow, error) {
	var all []recorder.StockRow
	for _, t := range []string{"AAPL", "MSFT"} {
		all = append(all, f.rows[t]...)
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

type fakeRuns struct{ fail bool }

func (f *fakeRuns) RunTickers(_ context.Context, tickers []string) *model.RunSummary {
	run := model.TickerRun{Ticker: tickers[0], RunID: "run-1", Status: model.StatusDone, Rows: 3}
	if f.fail {
		run.Status = model.StatusFailed
		run.Stage = "collecting"
		run.Error = "timeout"
	}
	return &model.RunSummary{RunID: "run-1", Runs: []model.TickerRun{run}}
}

type fakeStatus struct{}

func (fakeStatus) Snapshot() ([]model.TickerRun, int) {
	return []model.TickerRun{{Ticker: "AAPL", Status: model.StatusDone, Rows: 3}}, 4
}

func stockRows(ticker string) []recorder.StockRow {
	return []recorder.StockRow{
		{ID: 1, Ticker: ticker, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: null.FloatFrom(100)},
		{ID: 2, Ticker: ticker, Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: null.FloatFrom(110),
			PriceChangePct: null.FloatFrom(10), SMAShort: null.FloatFrom(105)},
	}
}

func newTestServer(t *testing.T, runs *fakeRuns) (*Server, *fakeStore, string) {
	t.Helper()
	dir := t.TempDir()
	store := &fakeStore{rows: map[string][]recorder.StockRow{
		"AAPL": stockRows("AAPL"),
		"MSFT": stockRows("MSFT"),
	}}
	s := New(":0", Deps{
		Store:        store,
		Runs:         runs,
		Status:       fakeStatus{},
		Processor:    pipeline.New(pipeline.Config{ShortWindow: 2, LongWindow: 3}, zerolog.Nop()),
		Metrics:      metrics.NewMetrics().Handler(),
		RawDir:       filepath.Join(dir, "raw"),
		ProcessedDir: filepath.Join(dir, "processed"),
	}, zerolog.Nop())
	return s, store, dir
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeRuns{})

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatus(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeRuns{})
	rec := do(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.TotalRuns)
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, "AAPL", resp.Runs[0].Ticker)
}

func TestListStocks(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeRuns{})

	rec := do(t, s, http.MethodGet, "/api/stocks?offset=1&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []recorder.StockRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "AAPL", rows[0].Ticker)
	assert.Equal(t, "MSFT", rows[1].Ticker)

	rec = do(t, s, http.MethodGet, "/api/stocks?offset=99", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, q := range []string{"limit=0", "limit=5000", "offset=-1", "limit=abc"} {
		rec = do(t, s, http.MethodGet, "/api/stocks?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetStock(t *testing.T) {
	s, store, _ := newTestServer(t, &fakeRuns{})

	rec := do(t, s, http.MethodGet, "/api/stocks/aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0]["price_change_pct"])
	assert.Equal(t, 10.0, rows[1]["price_change_pct"])
	assert.Nil(t, store.gotOn)

	rec = do(t, s, http.MethodGet, "/api/stocks/AAPL?date=2024-01-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.gotOn)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *store.gotOn)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/stocks/AAPL?date=01/02/2024", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/stocks/TSLA", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/stocks/BAD%20TICKER", "").Code)
}

func TestExportCSV(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeRuns{})
	rec := do(t, s, http.MethodGet, "/api/stocks/MSFT/csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		"Date,Open,High,Low,Close,Volume,price_change_pct,sma_short,sma_long\n"+
			"2024-01-01T00:00:00Z,,,,100,,,,\n"+
			"2024-01-02T00:00:00Z,,,,110,,10,105,\n",
		rec.Body.String())
}

func TestTriggerRun(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeRuns{})
	rec := do(t, s, http.MethodPost, "/api/runs/msft", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary model.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "MSFT", summary.Runs[0].Ticker)

	s, _, _ = newTestServer(t, &fakeRuns{fail: true})
	rec = do(t, s, http.MethodPost, "/api/runs/MSFT", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stage":"collecting"`)
}

func TestProcessFile(t *testing.T) {
	s, _, dir := newTestServer(t, &fakeRuns{})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "raw"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raw", "AAPL_1.csv"),
		[]byte("Date,Close\n2024-01-01,100\n2024-01-02,110\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raw", "AAPL_2.csv"),
		[]byte("Date,Open\n2024-01-01,100\n"), 0644))

	rec := do(t, s, http.MethodPost, "/api/process", `{"ticker":"aapl","file":"AAPL_1.csv"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Rows)
	assert.Equal(t, filepath.Join(dir, "processed", "AAPL_1_processed.csv"), resp.Destination)

	rec = do(t, s, http.MethodPost, "/api/process", `{"ticker":"AAPL","file":"AAPL_2.csv"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stage":"validating"`)

	rec = do(t, s, http.MethodPost, "/api/process", `{"ticker":"AAPL","file":"AAPL_1.txt"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	for _, body := range []string{
		`{"ticker":"AAPL","file":"../etc/passwd"}`,
		`{"ticker":"","file":"AAPL_1.csv"}`,
		`{"ticker":"AAPL"}`,
		`not json`,
	} {
		rec = do(t, s, http.MethodPost, "/api/process", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCORS(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeRuns{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	s = New(":0", Deps{Store: &fakeStore{}, CORSOrigins: []string{"http://localhost:3000"}}, zerolog.Nop())
	req = httptest.NewRequest(http.MethodOptions, "/api/stocks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
