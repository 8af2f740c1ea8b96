// Package writer serializes an enriched series to the processed CSV artifact
// consumed by storage and plotting.
//
// The artifact layout is fixed:
//
//	Date,Open,High,Low,Close,Volume,price_change_pct,sma_short,sma_long
//
// Dates are RFC3339 in UTC, numbers use the shortest exact decimal form and
// null values are written as empty cells. Columns are never omitted.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	apperrors "StockAnalytics/internal/errors"
	"StockAnalytics/internal/model"
)

// Encode writes the header and one row per record to w.
func Encode(w io.Writer, seq []model.EnrichedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.ProcessedColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(model.ProcessedColumns))
	for i, r := range seq {
		row[0] = FormatDate(r.Date)
		row[1] = FormatFloat(r.Open)
		row[2] = FormatFloat(r.High)
		row[3] = FormatFloat(r.Low)
		row[4] = FormatFloat(r.Close)
		row[5] = FormatFloat(r.Volume)
		row[6] = FormatFloat(r.PriceChangePct)
		row[7] = FormatFloat(r.SMAShort)
		row[8] = FormatFloat(r.SMALong)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write replaces the artifact at path with seq. Missing directories are
// created. The file is written next to its destination and renamed into
// place, so a failed write never leaves a partial artifact behind.
func Write(path string, seq []model.EnrichedRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewWriteError(path, fmt.Errorf("create directory: %w", err))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperrors.NewWriteError(path, fmt.Errorf("create temp file: %w", err))
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := Encode(tmp, seq); err != nil {
		return apperrors.NewWriteError(path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return apperrors.NewWriteError(path, fmt.Errorf("chmod: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewWriteError(path, fmt.Errorf("close: %w", err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		committed = true
		return apperrors.NewWriteError(path, fmt.Errorf("rename: %w", err))
	}
	committed = true
	return nil
}

// FormatDate renders t as RFC3339 in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FormatFloat renders v in its shortest exact decimal form, or "" when null.
func FormatFloat(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}
