package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"

	"outletqa/internal/config"
	"outletqa/internal/infrastructure"
	"outletqa/internal/operations"
	"outletqa/pkg/contracts"
)

// Executable is the name of the command line binary
const Executable = "outlet-report"

// shutdownTimeout bounds flushing telemetry at exit
const shutdownTimeout = 5 * time.Second

// Application wires configuration, logging, telemetry and the pipeline of
// one command line run.
type Application struct {
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Pipeline  *operations.Pipeline

	// Out receives the one line run summary
	Out io.Writer
}

// NewApplication loads the configuration and builds every component
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := config.GetPaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	cfg.Logging.FilePath = paths.LogFile

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	info := contracts.GetVersionInfo()
	logger.InfoContext(ctx, "application starting",
		slog.String("name", config.AppName),
		slog.String("version", info.Version),
		slog.String("build_time", info.BuildTime),
		slog.String("commit", info.Commit),
		slog.String("report_format", info.ReportFormat),
		slog.String("executable", Executable))
	paths.LogPathResolution(logger)

	tel, err := infrastructure.InitializeTelemetry(ctx, cfg.Telemetry, os.Stderr, logger)
	if err != nil {
		_ = infrastructure.CloseLogFile()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	pipeline, err := operations.NewPipelineWithPaths(cfg, paths, logger, tel)
	if err != nil {
		_ = tel.Shutdown(ctx)
		_ = infrastructure.CloseLogFile()
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	return &Application{
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		Telemetry: tel,
		Pipeline:  pipeline,
		Out:       os.Stdout,
	}, nil
}

// Run executes the pipeline once. An interrupt cancels the run between
// stages. Telemetry is flushed and the log file closed before returning.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := a.Pipeline.Run(ctx)
	if runErr == nil {
		fmt.Fprintf(a.Out, "Report written to %s (%d records, %d missing cells, %d outliers)\n",
			result.ReportPath, result.Rows, result.MissingCells, result.Outliers)
	}

	if err := a.Stop(context.WithoutCancel(ctx)); err != nil {
		a.Logger.ErrorContext(ctx, "shutdown error", slog.String("error", err.Error()))
	}
	return runErr
}

// Stop flushes telemetry and closes the log file
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var merr *multierror.Error
	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(shutdownCtx); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("telemetry: %w", err))
		}
	}
	a.Logger.DebugContext(ctx, "application stopped")
	if err := infrastructure.CloseLogFile(); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("log file: %w", err))
	}
	return merr.ErrorOrNil()
}
