// Package schema checks that a raw batch satisfies the minimum data contract.
package schema

import (
	apperrors "StockAnalytics/internal/errors"
	"StockAnalytics/internal/model"
)

// Validate returns a *ValidationError when any required column is absent.
// An empty batch that carries the required columns is valid.
func Validate(batch model.RawBatch) error {
	var missing []string
	for _, col := range model.RequiredColumns {
		if !batch.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	present := make([]string, len(batch.Columns))
	copy(present, batch.Columns)
	return &apperrors.ValidationError{Missing: missing, Present: present}
}
