// Command process runs the pipeline over one raw file:
//
//	process -ticker AAPL -out data/processed/AAPL_processed.csv data/raw/AAPL.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"StockAnalytics/internal/config"
	apperrors "StockAnalytics/internal/errors"
	"StockAnalytics/internal/logger"
	"StockAnalytics/internal/pipeline"
)

func main() {
	ticker := flag.String("ticker", "", "ticker symbol (default: source file name up to the first underscore)")
	out := flag.String("out", "", "output artifact path (default: <processed dir>/<source name>_processed.csv)")
	cfgPath := flag.String("config", "configs/config.yaml", "config file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: process [-ticker T] [-out FILE] SOURCE")
		os.Exit(2)
	}
	src := flag.Arg(0)

	cfg, err := config.Load(*cfgPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: true})

	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	if *ticker == "" {
		*ticker = strings.ToUpper(strings.SplitN(name, "_", 2)[0])
	}
	if *out == "" {
		*out = filepath.Join(cfg.Paths.ProcessedDir, name+"_processed.csv")
	}

	p := pipeline.New(pipeline.Config{
		ShortWindow: *cfg.Indicators.ShortWindow,
		LongWindow:  *cfg.Indicators.LongWindow,
	}, l)
	res, err := p.Process(context.Background(), pipeline.Job{Ticker: *ticker, Source: src, Destination: *out})
	if err != nil {
		cause := err
		var se *apperrors.StageError
		if errors.As(err, &se) {
			cause = se.Err
		}
		fmt.Fprintf(os.Stderr, "%s: %s failed: %v\n", *ticker, apperrors.StageOf(err), cause)
		os.Exit(1)
	}
	fmt.Printf("%s: wrote %d rows to %s (invalid=%d duplicates=%d)\n",
		res.Ticker, res.Rows, res.Destination, res.Invalid, res.Duplicates)
}

