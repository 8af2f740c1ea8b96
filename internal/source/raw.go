package source

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/guregu/null/v6"

	apperrors "StockAnalytics/internal/errors"
	"StockAnalytics/internal/model"
)

// WriteRawCSV stores fetched records as a raw CSV with the OHLCV header,
// creating parent directories as needed. The file is renamed into place, so
// readers of path never see a partial batch.
func WriteRawCSV(path string, records []model.RawRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewWriteError(path, fmt.Errorf("create directory: %w", err))
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperrors.NewWriteError(path, fmt.Errorf("create temp file: %w", err))
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName) // no-op once renamed
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(model.SourceColumns); err != nil {
		return apperrors.NewWriteError(path, err)
	}
	for _, r := range records {
		row := []string{r.Date, cell(r.Open), cell(r.High), cell(r.Low), cell(r.Close), cell(r.Volume)}
		if err := w.Write(row); err != nil {
			return apperrors.NewWriteError(path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return apperrors.NewWriteError(path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return apperrors.NewWriteError(path, fmt.Errorf("chmod: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewWriteError(path, fmt.Errorf("close: %w", err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return apperrors.NewWriteError(path, fmt.Errorf("rename: %w", err))
	}
	return nil
}

func cell(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}
