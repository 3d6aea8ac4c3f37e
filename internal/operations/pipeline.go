package operations

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"outletqa/internal/config"
	"outletqa/internal/dataprocessing"
	"outletqa/internal/exporter"
	"outletqa/internal/infrastructure"
	"outletqa/internal/validation"
)

// Result summarizes a finished run
type Result struct {
	RunID        string
	InputPath    string
	ReportPath   string
	Rows         int
	MissingCells int
	Outliers     int
	Groups       int
	Duration     time.Duration
	Steps        []*StepState
}

// Pipeline runs the load, analyze, aggregate and report stages in order
type Pipeline struct {
	stages    []Step
	paths     *config.Paths
	telemetry *infrastructure.Telemetry
	tracer    *PipelineTracer
	logger    *slog.Logger
}

// NewPipeline builds the stages from cfg. Relative paths resolve against the
// working directory. A nil telemetry records nothing.
func NewPipeline(cfg *config.Config, logger *slog.Logger, tel *infrastructure.Telemetry) (*Pipeline, error) {
	paths, err := config.GetPaths(cfg)
	if err != nil {
		return nil, err
	}
	return NewPipelineWithPaths(cfg, paths, logger, tel)
}

// NewPipelineWithPaths builds the stages from cfg using already resolved paths
func NewPipelineWithPaths(cfg *config.Config, paths *config.Paths, logger *slog.Logger, tel *infrastructure.Telemetry) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tel == nil {
		tel = infrastructure.NoopTelemetry()
	}

	tracer, err := NewPipelineTracer(tel)
	if err != nil {
		return nil, err
	}

	validator := validation.NewFileValidator(logger)
	stages := []Step{
		NewLoadStage(validator, dataprocessing.NewLoader(logger)),
		NewAnalyzeStage(dataprocessing.NewAnalyzer(AnalyzerOptions(cfg.Analysis), logger)),
		NewAggregateStage(
			dataprocessing.NewSummarizer(logger),
			cfg.GroupingKeys(),
			cfg.Analysis.SumColumns,
			infrastructure.WithComponent(logger, "aggregator"),
		),
		NewReportStage(validator, exporter.NewWriter(paths.ReportFile, logger)),
	}

	return &Pipeline{
		stages:    stages,
		paths:     paths,
		telemetry: tel,
		tracer:    tracer,
		logger:    infrastructure.WithComponent(logger, "pipeline"),
	}, nil
}

// AnalyzerOptions converts the analysis configuration. Configured ranges
// replace the default rule of their column; a missing bound is open.
func AnalyzerOptions(cfg config.AnalysisConfig) dataprocessing.AnalyzerOptions {
	opts := dataprocessing.DefaultAnalyzerOptions()
	if cfg.IQRMultiplier > 0 {
		opts.IQRMultiplier = cfg.IQRMultiplier
	}
	for key, r := range cfg.Ranges {
		rule := dataprocessing.RangeRule{Min: math.Inf(-1), Max: math.Inf(1)}
		if r.Min != nil {
			rule.Min = *r.Min
		}
		if r.Max != nil {
			rule.Max = *r.Max
		}
		opts.Ranges[key] = rule
	}
	return opts
}

// Paths returns the resolved file locations of the pipeline
func (p *Pipeline) Paths() *config.Paths {
	return p.paths
}

// Run executes every stage in order and stops at the first failure. Metrics
// are pushed whatever the outcome; a failed push is only logged.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	runID := infrastructure.GetRunID(ctx)

	state := NewRunState(runID, p.paths.InputFile, p.paths.ReportFile)
	for _, s := range p.stages {
		state.Steps = append(state.Steps, NewStepState(s.ID(), s.Name()))
	}

	ctx, span := p.tracer.TraceRun(ctx, runID, state.InputPath)
	p.logger.InfoContext(ctx, "run started",
		slog.String("input", state.InputPath),
		slog.String("report", state.ReportPath))

	state.Start()
	err := p.runStages(ctx, state)
	if err != nil {
		state.Fail(err)
		infrastructure.WithError(p.logger, err).ErrorContext(ctx, "run failed",
			slog.Duration("duration", state.Duration()))
	} else {
		state.Complete()
		p.logger.InfoContext(ctx, "run completed",
			slog.String("report", state.ReportPath),
			slog.Duration("duration", state.Duration()))
	}
	p.tracer.RecordRunCompletion(ctx, span, state)

	if pushErr := p.telemetry.Push(ctx); pushErr != nil {
		p.logger.WarnContext(ctx, "metrics push failed", slog.String("error", pushErr.Error()))
	}

	return newResult(state), err
}

func (p *Pipeline) runStages(ctx context.Context, state *RunState) error {
	for _, stage := range p.stages {
		step := state.Step(stage.ID())
		if err := ctx.Err(); err != nil {
			p.skipRemaining(state, "run cancelled")
			return err
		}

		stageCtx, span := p.tracer.TraceStage(ctx, stage.ID())
		step.Start()
		p.logger.DebugContext(stageCtx, "stage started", slog.String("stage", stage.ID()))

		err := stage.Execute(stageCtx, state)
		if err != nil {
			step.Fail(err)
			p.tracer.RecordStageCompletion(stageCtx, span, stage.ID(), step.Duration(), err)
			p.skipRemaining(state, "previous stage failed")
			return fmt.Errorf("%s: %w", stage.Name(), err)
		}

		step.Complete()
		p.recordStageOutput(stageCtx, stage.ID(), state, step)
		p.tracer.RecordStageCompletion(stageCtx, span, stage.ID(), step.Duration(), nil)
		p.logger.DebugContext(stageCtx, "stage completed",
			slog.String("stage", stage.ID()),
			slog.Duration("duration", step.Duration()))
	}
	return nil
}

func (p *Pipeline) recordStageOutput(ctx context.Context, stageID string, state *RunState, step *StepState) {
	switch stageID {
	case StageIDLoad:
		p.tracer.RecordDataset(ctx, state.Dataset)
		step.Metadata["rows"] = state.Dataset.Len()
		step.Metadata["columns"] = len(state.Dataset.Columns)
	case StageIDAnalyze:
		p.tracer.RecordQuality(ctx, state.Quality)
		step.Metadata["missing_cells"] = state.Quality.MissingCells()
		step.Metadata["outliers"] = state.Quality.OutlierCount()
	case StageIDAggregate:
		p.tracer.RecordGroupings(ctx, state.Groupings)
		step.Metadata["groupings"] = len(state.Groupings)
		step.Metadata["skipped"] = len(state.Skipped)
		if state.TopDischargers != nil {
			step.Metadata["top_dischargers"] = len(state.TopDischargers.Groups)
		}
	case StageIDReport:
		step.Message = state.ReportPath
	}
}

func (p *Pipeline) skipRemaining(state *RunState, reason string) {
	for _, s := range state.Steps {
		if s.Status == StepStatusPending {
			s.Skip(reason)
		}
	}
}

func newResult(state *RunState) *Result {
	r := &Result{
		RunID:      state.ID,
		InputPath:  state.InputPath,
		ReportPath: state.ReportPath,
		Duration:   state.Duration(),
		Steps:      state.Steps,
	}
	if state.Dataset != nil {
		r.Rows = state.Dataset.Len()
	}
	r.MissingCells = state.Quality.MissingCells()
	r.Outliers = state.Quality.OutlierCount()
	for _, g := range state.Groupings {
		r.Groups += len(g.Groups)
	}
	return r
}
