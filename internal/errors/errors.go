// Package errors defines the failure taxonomy shared by every pipeline stage
// and the API error shape returned by the HTTP layer.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// FormatError reports an input file whose type is not accepted.
type FormatError struct {
	Path   string
	Suffix string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported file type %q for %s: only .csv and .json are accepted", e.Suffix, e.Path)
}

// ValidationError reports required columns missing from a raw batch.
type ValidationError struct {
	Missing []string
	Present []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required columns [%s] (present: [%s])",
		strings.Join(e.Missing, ", "), strings.Join(e.Present, ", "))
}

// IOError reports an unreadable source or an unwritable destination.
type IOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewReadError wraps err as an IOError for a source path.
func NewReadError(path string, err error) *IOError {
	return &IOError{Op: "read", Path: path, Err: err}
}

// NewWriteError wraps err as an IOError for a destination path.
func NewWriteError(path string, err error) *IOError {
	return &IOError{Op: "write", Path: path, Err: err}
}

// StageError attributes a failure to the ticker, source and stage it came from.
type StageError struct {
	Ticker string
	Source string
	Stage  string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ticker %s (%s): %s failed: %v", e.Ticker, e.Source, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsFormat reports whether err carries a FormatError.
func IsFormat(err error) bool {
	var fe *FormatError
	return stderrors.As(err, &fe)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return stderrors.As(err, &ve)
}

// IsIO reports whether err carries an IOError.
func IsIO(err error) bool {
	var ie *IOError
	return stderrors.As(err, &ie)
}

// StageOf returns the failed stage recorded in err, or "" when err carries none.
func StageOf(err error) string {
	var se *StageError
	if stderrors.As(err, &se) {
		return se.Stage
	}
	return ""
}
