package exporter

import "fmt"

// ExportError reports a workbook that could not be written. PartnerID is empty
// for the summary workbook.
type ExportError struct {
	PartnerID string
	Label     string
	File      string
	Err       error
}

// Error implements the error interface
func (e *ExportError) Error() string {
	if e.PartnerID == "" {
		return fmt.Sprintf("failed to write summary workbook %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("failed to write workbook %s for partner %s (%s): %v", e.File, e.PartnerID, e.Label, e.Err)
}

// Unwrap returns the underlying write error
func (e *ExportError) Unwrap() error {
	return e.Err
}
