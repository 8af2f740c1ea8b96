package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"StockAnalytics/internal/collector"
	apperrors "StockAnalytics/internal/errors"
	"StockAnalytics/internal/metrics"
	"StockAnalytics/internal/model"
	"StockAnalytics/internal/pipeline"
	"StockAnalytics/internal/recorder"
	"StockAnalytics/internal/state"
)

// Stages outside the core pipeline.
const (
	StageCollecting = "collecting"
	StageRecording  = "recording"
)

// ProcessedFileName returns the artifact name for ticker processed at ts,
// e.g. AAPL_20240105_153000_processed.csv.
func ProcessedFileName(ticker string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_processed.csv", strings.ToUpper(ticker), ts.UTC().Format("20060102_150405"))
}

// Runner drives one ticker from download to persisted series.
type Runner struct {
	Collector    *collector.Collector
	Pipeline     *pipeline.Pipeline
	Recorder     recorder.Recorder
	State        *state.Manager
	Metrics      *metrics.Metrics
	Tickers      []string
	ProcessedDir string
	Parallelism  int
	Now          func() time.Time
	logger       zerolog.Logger
}

// NewRunner creates a Runner. Recorder may be a NoopRecorder.
func NewRunner(col *collector.Collector, p *pipeline.Pipeline, rec recorder.Recorder, st *state.Manager,
	m *metrics.Metrics, tickers []string, processedDir string, parallelism int, logger zerolog.Logger) *Runner {
	return &Runner{
		Collector:    col,
		Pipeline:     p,
		Recorder:     rec,
		State:        st,
		Metrics:      m,
		Tickers:      tickers,
		ProcessedDir: processedDir,
		Parallelism:  parallelism,
		Now:          time.Now,
		logger:       logger.With().Str("component", "runner").Logger(),
	}
}

// RunTicker collects, processes and records one ticker. Failures are
// reported in the returned run, never as a panic or a sibling cancellation.
func (r *Runner) RunTicker(ctx context.Context, runID, ticker string) model.TickerRun {
	start := time.Now()
	now := r.Now()
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	run := model.TickerRun{Ticker: ticker, RunID: runID}
	log := r.logger.With().Str("run_id", runID).Str("ticker", ticker).Logger()

	fail := func(stage string, err error) model.TickerRun {
		run.Status = model.StatusFailed
		run.Stage = stage
		run.Error = err.Error()
		run.FinishedAt = time.Now().UTC()
		log.Error().Err(err).Str("stage", stage).Msg("ticker run failed")
		if r.Metrics != nil {
			r.Metrics.ObserveFailure(stage, time.Since(start))
		}
		r.finish(ctx, run, time.Since(start))
		return run
	}

	if !model.ValidTicker(ticker) {
		return fail(StageCollecting, fmt.Errorf("invalid ticker symbol %q", ticker))
	}

	rawPath, _, err := r.Collector.Collect(ctx, ticker, now)
	if err != nil {
		return fail(StageCollecting, err)
	}
	run.RawPath = rawPath

	res, err := r.Pipeline.Process(ctx, pipeline.Job{
		Ticker:      ticker,
		Source:      rawPath,
		Destination: filepath.Join(r.ProcessedDir, ProcessedFileName(ticker, now)),
	})
	if err != nil {
		return fail(apperrors.StageOf(err), err)
	}

	if _, err := r.Recorder.RecordSeries(ctx, ticker, res.Records); err != nil {
		return fail(StageRecording, err)
	}

	run.Status = model.StatusDone
	run.Artifact = res.Destination
	run.Rows = res.Rows
	run.Invalid = res.Invalid
	run.Duplicates = res.Duplicates
	run.LastDate = res.LastDate
	run.FinishedAt = time.Now().UTC()
	if r.Metrics != nil {
		r.Metrics.ObserveSuccess(ticker, res.Rows, res.Invalid, res.Duplicates, time.Since(start))
	}
	r.finish(ctx, run, time.Since(start))
	return run
}

func (r *Runner) finish(ctx context.Context, run model.TickerRun, d time.Duration) {
	if r.State != nil {
		if err := r.State.Update(run); err != nil {
			r.logger.Error().Err(err).Str("ticker", run.Ticker).Msg("save run state failed")
		}
	}
	if err := r.Recorder.RecordRun(ctx, &recorder.RunEvent{
		RunID:    run.RunID,
		Ticker:   run.Ticker,
		Status:   run.Status,
		Stage:    run.Stage,
		Rows:     run.Rows,
		Artifact: run.Artifact,
		Error:    run.Error,
		Duration: d,
	}); err != nil {
		r.logger.Error().Err(err).Str("ticker", run.Ticker).Msg("record run failed")
	}
}

// RunAll processes every configured ticker concurrently and returns the
// batch summary with runs in configuration order.
func (r *Runner) RunAll(ctx context.Context) *model.RunSummary {
	return r.RunTickers(ctx, r.Tickers)
}

// RunTickers processes the given tickers as one batch.
func (r *Runner) RunTickers(ctx context.Context, tickers []string) *model.RunSummary {
	summary := &model.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Runs:      make([]model.TickerRun, len(tickers)),
	}
	r.logger.Info().Str("run_id", summary.RunID).Strs("tickers", tickers).Msg("batch run started")

	limit := r.Parallelism
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, t := range tickers {
		g.Go(func() error {
			summary.Runs[i] = r.RunTicker(ctx, summary.RunID, t)
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(summary.StartedAt)
	r.logger.Info().
		Str("run_id", summary.RunID).
		Int("tickers", len(tickers)).
		Int("failed", summary.Failed()).
		Dur("duration", summary.Duration).
		Msg("batch run finished")
	return summary
}
