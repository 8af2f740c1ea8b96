package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageError_UnwrapsToCause(t *testing.T) {
	cause := &ValidationError{Missing: []string{"Close"}, Present: []string{"Date"}}
	err := fmt.Errorf("run: %w", &StageError{Ticker: "AAPL", Source: "a.csv", Stage: "validating", Err: cause})

	assert.True(t, IsValidation(err))
	assert.False(t, IsFormat(err))
	assert.False(t, IsIO(err))
	assert.Equal(t, "validating", StageOf(err))
	assert.Contains(t, err.Error(), "AAPL")
	assert.Contains(t, err.Error(), "Close")

	var ve *ValidationError
	require.True(t, stderrors.As(err, &ve))
	assert.Equal(t, []string{"Close"}, ve.Missing)
}

func TestIOError_Unwrap(t *testing.T) {
	err := NewReadError("x.csv", fs.ErrNotExist)
	assert.True(t, IsIO(err))
	assert.True(t, stderrors.Is(err, fs.ErrNotExist))
	assert.Equal(t, "read x.csv: file does not exist", err.Error())
}

func TestStageOf_NoStage(t *testing.T) {
	assert.Equal(t, "", StageOf(stderrors.New("plain")))
}

func TestFromPipelineError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"format", &StageError{Stage: "loading", Err: &FormatError{Path: "a.txt", Suffix: ".txt"}}, http.StatusUnprocessableEntity},
		{"validation", &StageError{Stage: "validating", Err: &ValidationError{Missing: []string{"Date"}}}, http.StatusUnprocessableEntity},
		{"io", &StageError{Stage: "writing", Err: NewWriteError("out.csv", fs.ErrPermission)}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromPipelineError(tt.err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			details, ok := apiErr.Details.(map[string]string)
			require.True(t, ok)
			assert.NotEmpty(t, details["stage"])
		})
	}
	// shared sentinels stay untouched
	assert.Nil(t, ErrPipelineFailed.Details)
}
