// Package operations runs the outlet analysis as a sequence of stages.
//
// A Pipeline executes four stages against a shared RunState:
//
//   - load: validate the input file and read the outlet register
//   - analyze: missing values, outliers and descriptive statistics
//   - aggregate: the configured grouping tables and the cooling water subset
//   - report: render and write the markdown report
//
// Stages run in order and the first failure ends the run; the remaining
// stages are marked skipped. Each run and stage gets a span, and the
// PipelineTracer records stage durations, failures by error type and the
// dataset totals as metrics.
//
// Example usage:
//
//	pipeline, err := operations.NewPipeline(cfg, logger, telemetry)
//	if err != nil {
//		return err
//	}
//	result, err := pipeline.Run(ctx)
package operations
