// Package source loads raw price batches from the files produced by the
// ingestion step and writes those files for fetched data.
package source

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/guregu/null/v6"

	apperrors "StockAnalytics/internal/errors"
	"StockAnalytics/internal/model"
)

// Supported source suffixes.
const (
	SuffixCSV  = ".csv"
	SuffixJSON = ".json"
)

// Read loads the raw batch stored at path. The format is chosen by suffix;
// any other suffix fails with a *FormatError before the file is opened.
func Read(ticker, path string) (model.RawBatch, error) {
	suffix := strings.ToLower(filepath.Ext(path))
	var decode func(io.Reader) ([]string, []model.RawRecord, error)
	switch suffix {
	case SuffixCSV:
		decode = decodeCSV
	case SuffixJSON:
		decode = decodeJSON
	default:
		return model.RawBatch{}, &apperrors.FormatError{Path: path, Suffix: filepath.Ext(path)}
	}

	f, err := os.Open(path)
	if err != nil {
		return model.RawBatch{}, apperrors.NewReadError(path, err)
	}
	defer f.Close()

	cols, records, err := decode(f)
	if err != nil {
		return model.RawBatch{}, apperrors.NewReadError(path, err)
	}
	return model.RawBatch{Ticker: ticker, Source: path, Columns: cols, Records: records}, nil
}

// parseFloat reads a numeric cell. Blank, non-numeric and non-finite values
// are null.
func parseFloat(s string) null.Float {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.Float{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// orderColumns puts the known OHLCV columns first in contract order and any
// other column after them, sorted.
func orderColumns(set map[string]struct{}) []string {
	cols := make([]string, 0, len(set))
	for _, c := range model.SourceColumns {
		if _, ok := set[c]; ok {
			cols = append(cols, c)
		}
	}
	var extra []string
	for c := range set {
		if !isSourceColumn(c) {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

func isSourceColumn(name string) bool {
	for _, c := range model.SourceColumns {
		if c == name {
			return true
		}
	}
	return false
}
