// Package shared holds code used across the outletqa packages that does not
// belong to a single pipeline stage.
//
// The testutil subpackage provides:
//
//   - a buffered slog handler for asserting on structured log output
//   - workbook and CSV fixture writers for the outlet register
//   - working directory and OUTLET_* environment isolation for CLI tests
//
// Example usage:
//
//	func TestLoad(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteWorkbook(t, t.TempDir(), "outlets.xlsx",
//	        testutil.OutletHeader, testutil.SampleOutletRows())
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
