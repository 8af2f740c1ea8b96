package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "StockAnalytics/internal/errors"
	"StockAnalytics/internal/model"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		missing []string
	}{
		{"full ohlcv", []string{"Date", "Open", "High", "Low", "Close", "Volume"}, nil},
		{"only required", []string{"Close", "Date"}, nil},
		{"missing close", []string{"Date"}, []string{"Close"}},
		{"missing date", []string{"Open", "Close"}, []string{"Date"}},
		{"no columns", nil, []string{"Date", "Close"}},
		{"wrong casing", []string{"date", "close"}, []string{"Date", "Close"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(model.RawBatch{Columns: tt.columns})
			if tt.missing == nil {
				assert.NoError(t, err)
				return
			}
			var ve *apperrors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.missing, ve.Missing)
			assert.Equal(t, len(tt.columns), len(ve.Present))
		})
	}
}

func TestValidate_EmptyBatchWithColumns(t *testing.T) {
	assert.NoError(t, Validate(model.RawBatch{Columns: []string{"Date", "Close"}}))
}

func TestValidate_DoesNotAliasColumns(t *testing.T) {
	cols := []string{"Date", "Open"}
	err := Validate(model.RawBatch{Columns: cols})
	var ve *apperrors.ValidationError
	require.True(t, errors.As(err, &ve))

	cols[0] = "Mutated"
	assert.Equal(t, []string{"Date", "Open"}, ve.Present)
}
