// Package files provides file system helpers shared by the loader, the
// validator and the report writer.
//
// Discovery lists the spreadsheets in a directory, used to suggest inputs
// when the configured one is missing. WriteFileAtomic replaces a file
// through a temporary sibling so a failed run never leaves a truncated
// report behind.
//
// Example usage:
//
//	candidates, err := files.NewDiscovery(wd).FindSpreadsheets(".")
//
//	err := files.WriteFileAtomic("reports/analysis_report.md", content, 0644)
package files
