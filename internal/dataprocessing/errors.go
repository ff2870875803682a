package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMatchingRows is returned when filtering leaves no NC/NCO rows.
// It is an expected outcome, not a failure of the input.
var ErrNoMatchingRows = errors.New("no 'NC' or 'NCO' rows found")

// FormatError reports that an input stream could not be parsed as a table
type FormatError struct {
	Filename string
	Reason   string
	Err      error
}

// Error implements the error interface
func (e *FormatError) Error() string {
	msg := fmt.Sprintf("cannot read %q as a table: %s", e.Filename, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying parse error
func (e *FormatError) Unwrap() error {
	return e.Err
}

// SchemaError reports required columns that are absent from a table.
// Missing lists every absent column, in the order they were required.
type SchemaError struct {
	Stage   string
	Missing []string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required column(s): %s", e.Stage, strings.Join(e.Missing, ", "))
}

// RequireColumns checks that every named column exists in t. All absent
// columns are reported at once.
func RequireColumns(t *Table, stage string, columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Stage: stage, Missing: missing}
	}
	return nil
}
