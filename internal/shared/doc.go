// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides:
//
//   - a buffered slog handler for asserting on log output
//   - listings fixtures rendered as CSV or xlsx input files
//
// Example usage:
//
//	func TestRun(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    input := testutil.ListingsCSV(t, testutil.SampleListings()...)
//	    // feed input to the pipeline, assert on logs
//	}
package shared
