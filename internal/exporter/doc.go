// Package exporter renders the outlet analysis as a markdown report and
// writes it to disk.
//
// Render is a pure function of its Data: the same input always produces the
// same bytes, so a report can be diffed between runs. Writer adds the file
// handling on top of it.
//
// Example usage:
//
//	w := exporter.NewWriter("reports/analysis_report.md", logger)
//	err := w.Write(ctx, exporter.Data{
//	    Source:    ds.Source,
//	    Quality:   quality,
//	    Groupings: groupings,
//	})
package exporter
