package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"outletqa/internal/errors"
	"outletqa/internal/infrastructure"
	"outletqa/pkg/contracts/domain"
)

// PipelineMetrics are the instruments recorded by a run
type PipelineMetrics struct {
	RunsTotal      metric.Int64Counter
	StageDuration  metric.Float64Histogram
	StageErrors    metric.Int64Counter
	RowsLoaded     metric.Int64Counter
	MissingCells   metric.Int64Counter
	OutliersFound  metric.Int64Counter
	GroupsComputed metric.Int64Counter
}

// CreatePipelineMetrics creates the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	runsTotal, err := meter.Int64Counter(
		"outlet_pipeline_runs",
		metric.WithDescription("Total number of pipeline runs by status"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"outlet_stage_duration",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stageErrors, err := meter.Int64Counter(
		"outlet_stage_errors",
		metric.WithDescription("Total number of failed pipeline stages"),
	)
	if err != nil {
		return nil, err
	}

	rowsLoaded, err := meter.Int64Counter(
		"outlet_rows_loaded",
		metric.WithDescription("Outlet records read from the register"),
	)
	if err != nil {
		return nil, err
	}

	missingCells, err := meter.Int64Counter(
		"outlet_missing_cells",
		metric.WithDescription("Missing cells found by the quality analysis"),
	)
	if err != nil {
		return nil, err
	}

	outliers, err := meter.Int64Counter(
		"outlet_outliers",
		metric.WithDescription("Numeric values flagged as outliers"),
	)
	if err != nil {
		return nil, err
	}

	groups, err := meter.Int64Counter(
		"outlet_groups",
		metric.WithDescription("Groups computed per grouping table"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RunsTotal:      runsTotal,
		StageDuration:  stageDuration,
		StageErrors:    stageErrors,
		RowsLoaded:     rowsLoaded,
		MissingCells:   missingCells,
		OutliersFound:  outliers,
		GroupsComputed: groups,
	}, nil
}

// PipelineTracer provides tracing and metrics for pipeline runs
type PipelineTracer struct {
	tracer  trace.Tracer
	metrics *PipelineMetrics
}

// NewPipelineTracer creates a tracer over the run's telemetry
func NewPipelineTracer(tel *infrastructure.Telemetry) (*PipelineTracer, error) {
	metrics, err := CreatePipelineMetrics(tel.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	return &PipelineTracer{
		tracer:  tel.Tracer,
		metrics: metrics,
	}, nil
}

// TraceRun creates the root span of a run
func (pt *PipelineTracer) TraceRun(ctx context.Context, runID, inputPath string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "outlet.pipeline",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("input.path", inputPath),
		),
	)
}

// TraceStage creates a span for one stage
func (pt *PipelineTracer) TraceStage(ctx context.Context, stageID string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "outlet.stage."+stageID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("stage.id", stageID)),
	)
}

// RecordStageCompletion ends a stage span and records its duration and errors
func (pt *PipelineTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stageID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	span.SetAttributes(
		attribute.String("stage.status", status),
		attribute.Float64("stage.duration_seconds", duration.Seconds()),
	)
	pt.metrics.StageDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("stage", stageID),
			attribute.String("status", status),
		),
	)

	if err != nil {
		errType := string(errors.TypeOf(err))
		if errType == "" {
			errType = "UNKNOWN"
		}
		pt.metrics.StageErrors.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("stage", stageID),
				attribute.String("error_type", errType),
			),
		)
		infrastructure.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordRunCompletion ends the root span and counts the run
func (pt *PipelineTracer) RecordRunCompletion(ctx context.Context, span trace.Span, state *RunState) {
	status := string(state.Status)
	pt.metrics.RunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))

	span.SetAttributes(
		attribute.String("run.status", status),
		attribute.Float64("run.duration_seconds", state.Duration().Seconds()),
	)
	if state.Error != nil {
		infrastructure.RecordError(ctx, state.Error)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordDataset records the size of the loaded register
func (pt *PipelineTracer) RecordDataset(ctx context.Context, ds *domain.Dataset) {
	pt.metrics.RowsLoaded.Add(ctx, int64(ds.Len()))
	infrastructure.AddSpanEvent(ctx, "dataset.loaded",
		attribute.Int("rows", ds.Len()),
		attribute.Int("columns", len(ds.Columns)),
	)
}

// RecordQuality records the quality analysis totals
func (pt *PipelineTracer) RecordQuality(ctx context.Context, q domain.QualityReport) {
	pt.metrics.MissingCells.Add(ctx, int64(q.MissingCells()))
	pt.metrics.OutliersFound.Add(ctx, int64(q.OutlierCount()))
	infrastructure.AddSpanEvent(ctx, "quality.analyzed",
		attribute.Int("missing_cells", q.MissingCells()),
		attribute.Int("outliers", q.OutlierCount()),
	)
}

// RecordGroupings records the number of groups per grouping table
func (pt *PipelineTracer) RecordGroupings(ctx context.Context, groupings []domain.Grouping) {
	for _, g := range groupings {
		pt.metrics.GroupsComputed.Add(ctx, int64(len(g.Groups)),
			metric.WithAttributes(attribute.String("grouping", g.Name())))
	}
}
