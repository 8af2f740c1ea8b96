// Package pipeline runs one ticker's raw file through load, validate,
// normalize, enrich and write. Runs share no mutable state, so independent
// jobs may execute concurrently.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"StockAnalytics/internal/calculator"
	apperrors "StockAnalytics/internal/errors"
	"StockAnalytics/internal/model"
	"StockAnalytics/internal/normalizer"
	"StockAnalytics/internal/schema"
	"StockAnalytics/internal/source"
	"StockAnalytics/internal/writer"
)

// Stage names a step of a run.
type Stage string

const (
	StageLoading     Stage = "loading"
	StageValidating  Stage = "validating"
	StageNormalizing Stage = "normalizing"
	StageEnriching   Stage = "enriching"
	StageWriting     Stage = "writing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Config holds the indicator windows. It is read-only during a run.
type Config struct {
	ShortWindow int
	LongWindow  int
}

// Job identifies one ticker's source file and its output artifact.
type Job struct {
	Ticker      string
	Source      string
	Destination string
}

// Result describes a successful run.
type Result struct {
	Ticker      string
	Destination string
	Rows        int
	Invalid     int
	Duplicates  int
	FirstDate   time.Time
	LastDate    time.Time
	Records     []model.EnrichedRecord
	Duration    time.Duration
}

// Outcome pairs a job with its result or error.
type Outcome struct {
	Job    Job
	Result *Result
	Err    error
}

type Pipeline struct {
	cfg    Config
	logger zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}
}

// Process executes a single run. The first failing stage ends the run; the
// returned error is a *errors.StageError wrapping the stage's cause. Context
// cancellation is observed between stages.
func (p *Pipeline) Process(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	log := p.logger.With().Str("ticker", job.Ticker).Str("source", job.Source).Logger()

	fail := func(stage Stage, err error) (*Result, error) {
		log.Error().Err(err).Str("stage", string(stage)).Msg("run failed")
		return nil, &apperrors.StageError{
			Ticker: job.Ticker,
			Source: job.Source,
			Stage:  string(stage),
			Err:    err,
		}
	}

	if err := ctx.Err(); err != nil {
		return fail(StageLoading, err)
	}
	log.Debug().Str("stage", string(StageLoading)).Msg("stage start")
	batch, err := source.Read(job.Ticker, job.Source)
	if err != nil {
		return fail(StageLoading, err)
	}

	if err := ctx.Err(); err != nil {
		return fail(StageValidating, err)
	}
	log.Debug().Str("stage", string(StageValidating)).Int("rows", len(batch.Records)).Msg("stage start")
	if err := schema.Validate(batch); err != nil {
		return fail(StageValidating, err)
	}

	if err := ctx.Err(); err != nil {
		return fail(StageNormalizing, err)
	}
	log.Debug().Str("stage", string(StageNormalizing)).Msg("stage start")
	norm := normalizer.Normalize(batch)

	if err := ctx.Err(); err != nil {
		return fail(StageEnriching, err)
	}
	log.Debug().Str("stage", string(StageEnriching)).Int("rows", len(norm.Records)).Msg("stage start")
	enriched := calculator.Enrich(norm.Records, p.cfg.ShortWindow, p.cfg.LongWindow)

	if err := ctx.Err(); err != nil {
		return fail(StageWriting, err)
	}
	log.Debug().Str("stage", string(StageWriting)).Str("destination", job.Destination).Msg("stage start")
	if err := writer.Write(job.Destination, enriched); err != nil {
		return fail(StageWriting, err)
	}

	res := &Result{
		Ticker:      job.Ticker,
		Destination: job.Destination,
		Rows:        len(enriched),
		Invalid:     norm.Invalid,
		Duplicates:  norm.Duplicates,
		Records:     enriched,
		Duration:    time.Since(start),
	}
	if n := len(enriched); n > 0 {
		res.FirstDate = enriched[0].Date
		res.LastDate = enriched[n-1].Date
	}

	log.Info().
		Int("rows", res.Rows).
		Int("invalid", res.Invalid).
		Int("duplicates", res.Duplicates).
		Str("destination", job.Destination).
		Dur("duration", res.Duration).
		Msg("run complete")
	return res, nil
}

// ProcessAll runs jobs concurrently with at most parallelism runs in flight.
// A failed job never cancels its siblings. Outcomes are returned in job order.
func (p *Pipeline) ProcessAll(ctx context.Context, jobs []Job, parallelism int) []Outcome {
	if parallelism < 1 {
		parallelism = 1
	}
	outcomes := make([]Outcome, len(jobs))

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, job := range jobs {
		g.Go(func() error {
			res, err := p.Process(ctx, job)
			outcomes[i] = Outcome{Job: job, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
