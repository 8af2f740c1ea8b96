package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "StockAnalytics/internal/errors"
	"StockAnalytics/internal/model"
	"StockAnalytics/internal/pipeline"
	"StockAnalytics/internal/recorder"
	"StockAnalytics/internal/writer"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type ctxKey string

const tickerKey ctxKey = "ticker"

var validate = validator.New()

// tickerCtx validates and upper-cases the {ticker} URL parameter.
func tickerCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
		if !model.ValidTicker(ticker) {
			render.Render(w, r, apperrors.ErrInvalidParameter.WithDetails(map[string]string{
				"ticker": "invalid ticker symbol",
			}))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tickerKey, ticker)))
	})
}

func tickerFrom(r *http.Request) string {
	t, _ := r.Context().Value(tickerKey).(string)
	return t
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Runs      []model.TickerRun `json:"runs"`
	TotalRuns int               `json:"total_runs"`
}

// status handles GET /api/status
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Runs: []model.TickerRun{}}
	if s.deps.Status != nil {
		resp.Runs, resp.TotalRuns = s.deps.Status.Snapshot()
	}
	render.JSON(w, r, resp)
}

// listStocks handles GET /api/stocks?offset=&limit=
func (s *Server) listStocks(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		render.Render(w, r, apperrors.ErrInvalidParameter.WithDetails(map[string]string{"offset": "must be a non-negative integer"}))
		return
	}
	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil || limit < 1 || limit > maxLimit {
		render.Render(w, r, apperrors.ErrInvalidParameter.WithDetails(map[string]string{"limit": "must be between 1 and 1000"}))
		return
	}

	rows, err := s.deps.Store.ListSeries(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list series failed")
		render.Render(w, r, apperrors.ErrInternalServer)
		return
	}
	if rows == nil {
		rows = []recorder.StockRow{}
	}
	render.JSON(w, r, rows)
}

// getStock handles GET /api/stocks/{ticker}?date=YYYY-MM-DD
func (s *Server) getStock(w http.ResponseWriter, r *http.Request) {
	var on *time.Time
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			render.Render(w, r, apperrors.ErrInvalidParameter.WithDetails(map[string]string{"date": "expected YYYY-MM-DD"}))
			return
		}
		on = &d
	}

	rows, ok := s.series(w, r, on)
	if !ok {
		return
	}
	render.JSON(w, r, rows)
}

// exportCSV handles GET /api/stocks/{ticker}/csv in the artifact format.
func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.series(w, r, nil)
	if !ok {
		return
	}
	seq := make([]model.EnrichedRecord, len(rows))
	for i, row := range rows {
		seq[i] = model.EnrichedRecord{
			NormalizedRecord: model.NormalizedRecord{
				Date:   row.Date,
				Open:   row.Open,
				High:   row.High,
				Low:    row.Low,
				Close:  row.Close,
				Volume: row.Volume,
			},
			PriceChangePct: row.PriceChangePct,
			SMAShort:       row.SMAShort,
			SMALong:        row.SMALong,
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+tickerFrom(r)+`_processed.csv"`)
	if err := writer.Encode(w, seq); err != nil {
		s.logger.Error().Err(err).Str("ticker", tickerFrom(r)).Msg("csv export failed")
	}
}

func (s *Server) series(w http.ResponseWriter, r *http.Request, on *time.Time) ([]recorder.StockRow, bool) {
	ticker := tickerFrom(r)
	rows, err := s.deps.Store.SeriesByTicker(r.Context(), ticker, on)
	if err != nil {
		s.logger.Error().Err(err).Str("ticker", ticker).Msg("query series failed")
		render.Render(w, r, apperrors.ErrInternalServer)
		return nil, false
	}
	if len(rows) == 0 {
		render.Render(w, r, apperrors.ErrNotFound.WithDetails(map[string]string{"ticker": ticker}))
		return nil, false
	}
	return rows, true
}

// triggerRun handles POST /api/runs/{ticker}
func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	summary := s.deps.Runs.RunTickers(r.Context(), []string{tickerFrom(r)})
	if summary.Failed() > 0 {
		run := summary.Runs[0]
		render.Render(w, r, apperrors.ErrPipelineFailed.WithDetails(map[string]string{
			"ticker": run.Ticker,
			"stage":  run.Stage,
			"error":  run.Error,
		}))
		return
	}
	render.JSON(w, r, summary)
}

// ProcessRequest asks the server to process a raw file already in the raw directory.
type ProcessRequest struct {
	Ticker string `json:"ticker" validate:"required,max=15"`
	File   string `json:"file" validate:"required"`
}

// Bind implements the render.Binder interface
func (p *ProcessRequest) Bind(r *http.Request) error {
	p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))
	if err := validate.Struct(p); err != nil {
		return err
	}
	if !model.ValidTicker(p.Ticker) {
		return errors.New("invalid ticker symbol")
	}
	if filepath.Base(p.File) != p.File {
		return errors.New("file must be a bare file name")
	}
	return nil
}

type processResponse struct {
	Ticker      string    `json:"ticker"`
	Destination string    `json:"destination"`
	Rows        int       `json:"rows"`
	Invalid     int       `json:"invalid"`
	Duplicates  int       `json:"duplicates"`
	FirstDate   time.Time `json:"first_date"`
	LastDate    time.Time `json:"last_date"`
}

// processFile handles POST /api/process
func (s *Server) processFile(w http.ResponseWriter, r *http.Request) {
	req := &ProcessRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, apperrors.ErrInvalidParameter.WithDetails(map[string]string{"error": err.Error()}))
		return
	}

	stem := strings.TrimSuffix(req.File, filepath.Ext(req.File))
	res, err := s.deps.Processor.Process(r.Context(), pipeline.Job{
		Ticker:      req.Ticker,
		Source:      filepath.Join(s.deps.RawDir, req.File),
		Destination: filepath.Join(s.deps.ProcessedDir, stem+"_processed.csv"),
	})
	if err != nil {
		render.Render(w, r, apperrors.FromPipelineError(err))
		return
	}
	render.JSON(w, r, processResponse{
		Ticker:      res.Ticker,
		Destination: res.Destination,
		Rows:        res.Rows,
		Invalid:     res.Invalid,
		Duplicates:  res.Duplicates,
		FirstDate:   res.FirstDate,
		LastDate:    res.LastDate,
	})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
