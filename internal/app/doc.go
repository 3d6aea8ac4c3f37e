// Package app provides application initialization and lifecycle management
// for the outlet-report command.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, outletqa.yaml and OUTLET_* variables
//  2. Resolve paths against the working directory
//  3. Initialize logging and telemetry
//  4. Build the analysis pipeline
//
// Run executes the pipeline once, prints a summary line, then flushes
// telemetry and closes the log file.
//
// # Usage
//
//	application, err := app.NewApplication(ctx)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
package app
