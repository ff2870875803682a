// Package services implements the business logic of the price comp host,
// between the HTTP handlers and the pipeline packages.
//
// # PriceCompService
//
// PriceCompService runs one upload through the pipeline stages:
//
//	read → filter → derive → summarize → export
//
// Each stage runs in its own span, and the run as a whole is recorded in the
// business metrics with one of the outcomes success, invalid_input or failed.
// Workbooks are written into a staging area that is removed before Run
// returns, whatever the outcome. The result carries the archive in memory.
//
// # HealthService
//
// HealthService answers the health, readiness and liveness probes. Readiness
// fails when the staging root is not writable.
//
// # Errors
//
// Run returns the pipeline errors unchanged (dataprocessing.FormatError,
// dataprocessing.SchemaError, dataprocessing.ErrNoMatchingRows,
// exporter.ExportError) so callers can map them with errors.As and errors.Is.
package services
