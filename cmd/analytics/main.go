package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"StockAnalytics/internal/collector"
	"StockAnalytics/internal/config"
	"StockAnalytics/internal/logger"
	"StockAnalytics/internal/metrics"
	"StockAnalytics/internal/notifier"
	"StockAnalytics/internal/pipeline"
	"StockAnalytics/internal/recorder"
	"StockAnalytics/internal/scheduler"
	"StockAnalytics/internal/server"
	"StockAnalytics/internal/state"
)

func main() {
	once := flag.Bool("once", false, "process all tickers once and exit")
	flag.Parse()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(l)
	if err := cfg.Validate(); err != nil {
		l.Fatal().Err(err).Msg("config validation")
	}
	l.Info().Strs("tickers", cfg.DataSource.Tickers).Msg("StockAnalytics starting")

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "yfinance":
		fetcher = collector.NewYFinanceFetcher()
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100, Days: 260}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	l.Info().Str("fetcher", fetcher.Name()).Msg("data source selected")

	col := collector.NewCollector(fetcher, cfg.Paths.RawDir, cfg.DataSource.Period, l)
	col.Limiter = rate.NewLimiter(rate.Limit(cfg.DataSource.RequestsPerSecond), 1)
	p := pipeline.New(pipeline.Config{
		ShortWindow: *cfg.Indicators.ShortWindow,
		LongWindow:  *cfg.Indicators.LongWindow,
	}, l)

	st, err := state.NewManager(cfg.Paths.StateFile)
	if err != nil {
		l.Fatal().Err(err).Msg("init run state")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, l)
		if err != nil {
			l.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	m := metrics.NewMetrics()
	runner := scheduler.NewRunner(col, p, rec, st, m, cfg.DataSource.Tickers,
		cfg.Paths.ProcessedDir, cfg.Parallelism, l)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		summary := runner.RunAll(ctx)
		if summary.Failed() > 0 {
			l.Error().Int("failed", summary.Failed()).Msg("run finished with failures")
			rec.Close()
			os.Exit(1)
		}
		return
	}

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, l)

	sched := scheduler.NewScheduler(ctx, runner, tn, l)
	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		l.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	if tn.Enabled() {
		go tn.StartPolling(ctx, sched.HandleCommand)
		l.Info().Msg("telegram polling started")
	}

	var srv *server.Server
	if cfg.Server.Addr != "" {
		srv = server.New(cfg.Server.Addr, server.Deps{
			Store:        rec,
			Runs:         runner,
			Status:       st,
			Processor:    p,
			Metrics:      m.Handler(),
			RawDir:       cfg.Paths.RawDir,
			ProcessedDir: cfg.Paths.ProcessedDir,
			CORSOrigins:  cfg.Server.CORSOrigins,
		}, l)
		srv.Start()
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		l.Info().Msg("RUN_ON_START enabled, processing all tickers now")
		go sched.RunNow()
	}

	l.Info().Msg("StockAnalytics is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	l.Info().Msg("shutdown signal received, stopping...")
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Stop(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("http shutdown")
		}
		done()
	}
	cancel()
	l.Info().Msg("StockAnalytics stopped")
}
