package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"StockAnalytics/internal/model"
	"StockAnalytics/internal/notifier"
)

// Notifier delivers run reports. *notifier.TelegramNotifier satisfies it.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron task and chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   *Runner
	Notifier Notifier
	Ctx      context.Context
	logger   zerolog.Logger
}

// NewScheduler creates a new Scheduler. Overlapping cron firings are skipped
// while a batch is still running.
func NewScheduler(ctx context.Context, runner *Runner, n Notifier, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Runner:   runner,
		Notifier: n,
		Ctx:      ctx,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the daily batch task.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunNow executes the daily task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() *model.RunSummary {
	return s.runBatch(s.Runner.Tickers)
}

func (s *Scheduler) dailyTask() {
	s.logger.Info().Msg("running daily task")
	s.runBatch(s.Runner.Tickers)
}

func (s *Scheduler) runBatch(tickers []string) *model.RunSummary {
	summary := s.Runner.RunTickers(s.Ctx, tickers)
	s.trySend(notifier.FormatRunSummary(summary))
	return summary
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	switch fields[0] {
	case "/run":
		tickers := s.Runner.Tickers
		if len(fields) > 1 {
			tickers = fields[1:]
		}
		summary := s.Runner.RunTickers(ctx, tickers)
		return notifier.FormatRunSummary(summary)
	case "/status":
		if s.Runner.State == nil {
			return notifier.FormatStatus(nil, 0)
		}
		runs, total := s.Runner.State.Snapshot()
		return notifier.FormatStatus(runs, total)
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.logger.Error().Err(err).Msg("send notification failed")
	}
}
