package operations

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"outletqa/internal/config"
	"outletqa/internal/errors"
	"outletqa/internal/infrastructure"
	"outletqa/internal/shared/testutil"
)

// testTelemetry records spans and metrics in memory
func testTelemetry(t *testing.T) (*infrastructure.Telemetry, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	return &infrastructure.Telemetry{
		Tracer: tp.Tracer("test"),
		Meter:  mp.Meter("test"),
	}, recorder, reader
}

func newTestPipeline(t *testing.T, dir, input string, tel *infrastructure.Telemetry) (*Pipeline, *testutil.BufferedSlogHandler) {
	t.Helper()
	cfg := config.Default()
	cfg.Input.Path = input
	logger, logs := testutil.NewTestLogger(t)
	p, err := NewPipelineWithPaths(cfg, config.ResolvePaths(cfg, dir), logger, tel)
	require.NoError(t, err)
	return p, logs
}

func TestPipelineRun(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWorkbook(t, dir, "outlets.xlsx", testutil.OutletHeader, testutil.SampleOutletRows())
	p, logs := newTestPipeline(t, dir, "outlets.xlsx", nil)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, filepath.Join(dir, config.DefaultReportPath), result.ReportPath)
	assert.Equal(t, 5, result.Rows)
	assert.Equal(t, 1, result.MissingCells)
	assert.Equal(t, 2, result.Outliers)
	// province 3, outlet_type 3, discharge_feature 4, entry_method 1, province+outlet_type 4
	assert.Equal(t, 15, result.Groups)

	require.Len(t, result.Steps, 4)
	for _, s := range result.Steps {
		assert.Equal(t, StepStatusCompleted, s.Status, s.ID)
	}
	assert.Equal(t, 5, result.Steps[0].Metadata["rows"])

	report, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	out := string(report)
	assert.Contains(t, out, "- Source file: outlets.xlsx")
	assert.Contains(t, out, "- Records: 5")
	assert.Contains(t, out, "### 5.5 By 省 + 排污口类型")
	assert.Contains(t, out, "1 outlets list 冷却水 in their discharge feature.")
	assert.Contains(t, out, "dischargers were not ranked")
	assert.NotContains(t, result.Steps[2].Metadata, "top_dischargers")

	testutil.AssertLogContains(t, logs, slog.LevelInfo, "run completed")
	testutil.AssertNoErrors(t, logs)
}

func TestPipelineRanksDischargers(t *testing.T) {
	dir := t.TempDir()
	header := append(append([]string{}, testutil.OutletHeader...), "设置单位名称")
	units := []string{"淅川造纸厂", "淅川造纸厂", "丹江口热电厂", "", "郧阳化工厂"}
	var rows [][]string
	for i, r := range testutil.SampleOutletRows() {
		rows = append(rows, append(append([]string{}, r...), units[i]))
	}
	testutil.WriteWorkbook(t, dir, "outlets.xlsx", header, rows)
	p, logs := newTestPipeline(t, dir, "outlets.xlsx", nil)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Steps[2].Metadata["top_dischargers"])

	report, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	out := string(report)
	assert.Contains(t, out, "## 7. Top Dischargers")
	assert.Contains(t, out, "| 1 | 淅川造纸厂 | 2 | 12.50 | 0.00 |")
	assert.Contains(t, out, "| 2 | 丹江口热电厂 | 1 | 3.50 | 120.00 |")
	assert.Contains(t, out, "| 3 | 郧阳化工厂 | 1 | -2.00 | 0.00 |")
	testutil.AssertNoErrors(t, logs)
}

func TestPipelineReportIsReproducible(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWorkbook(t, dir, "outlets.xlsx", testutil.OutletHeader, testutil.SampleOutletRows())
	p, _ := newTestPipeline(t, dir, "outlets.xlsx", nil)

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	a, err := os.ReadFile(first.ReportPath)
	require.NoError(t, err)

	second, err := p.Run(context.Background())
	require.NoError(t, err)
	b, err := os.ReadFile(second.ReportPath)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, string(a), string(b))
}

func TestPipelineMissingInput(t *testing.T) {
	dir := t.TempDir()
	p, logs := newTestPipeline(t, dir, "absent.xlsx", nil)

	result, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.Equal(t, StepStatusFailed, result.Steps[0].Status)
	for _, s := range result.Steps[1:] {
		assert.Equal(t, StepStatusSkipped, s.Status, s.ID)
	}

	_, statErr := os.Stat(filepath.Join(dir, config.DefaultReportPath))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dir, filepath.Dir(config.DefaultReportPath)))
	assert.True(t, os.IsNotExist(statErr))

	testutil.AssertLogContains(t, logs, slog.LevelError, "run failed")
}

func TestPipelineSchemaError(t *testing.T) {
	dir := t.TempDir()
	header := testutil.OutletHeader[:len(testutil.OutletHeader)-1]
	var rows [][]string
	for _, r := range testutil.SampleOutletRows() {
		rows = append(rows, r[:len(r)-1])
	}
	testutil.WriteWorkbook(t, dir, "outlets.xlsx", header, rows)
	p, _ := newTestPipeline(t, dir, "outlets.xlsx", nil)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeSchema, errors.TypeOf(err))
}

func TestPipelineEmptyDataset(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWorkbook(t, dir, "outlets.xlsx", testutil.OutletHeader, nil)
	p, _ := newTestPipeline(t, dir, "outlets.xlsx", nil)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Rows)

	report, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), "- Records: 0")
	assert.Contains(t, string(report), "The dataset has no records; nothing to assess.")
}

func TestPipelineSkipsGroupingOverAbsentColumn(t *testing.T) {
	dir := t.TempDir()
	// Drop the entry method column.
	drop := func(row []string) []string {
		out := append([]string(nil), row[:6]...)
		return append(out, row[7:]...)
	}
	var rows [][]string
	for _, r := range testutil.SampleOutletRows() {
		rows = append(rows, drop(r))
	}
	testutil.WriteCSV(t, dir, "outlets.csv", drop(testutil.OutletHeader), rows, true)
	p, logs := newTestPipeline(t, dir, "outlets.csv", nil)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 14, result.Groups)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "grouping skipped")

	report, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), "column entry_method not present in input")
}

func TestPipelineCancelled(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWorkbook(t, dir, "outlets.xlsx", testutil.OutletHeader, testutil.SampleOutletRows())
	p, _ := newTestPipeline(t, dir, "outlets.xlsx", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	for _, s := range result.Steps {
		assert.Equal(t, StepStatusSkipped, s.Status, s.ID)
	}
}

func TestPipelineTracing(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWorkbook(t, dir, "outlets.xlsx", testutil.OutletHeader, testutil.SampleOutletRows())
	tel, recorder, _ := testTelemetry(t)
	p, _ := newTestPipeline(t, dir, "outlets.xlsx", tel)

	ctx := infrastructure.WithRunID(context.Background(), "run-1")
	result, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", result.RunID)

	spans := recorder.Ended()
	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{
		"outlet.stage.load",
		"outlet.stage.analyze",
		"outlet.stage.aggregate",
		"outlet.stage.report",
		"outlet.pipeline",
	}, names)

	root := spans[len(spans)-1]
	assert.Equal(t, "outlet.pipeline", root.Name())
	assert.Contains(t, root.Attributes(), attribute.String("run.id", "run-1"))
	for _, s := range spans[:len(spans)-1] {
		assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID(), s.Name())
	}
}

func TestPipelineMetrics(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWorkbook(t, dir, "outlets.xlsx", testutil.OutletHeader, testutil.SampleOutletRows())
	tel, _, reader := testTelemetry(t)
	p, _ := newTestPipeline(t, dir, "outlets.xlsx", tel)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.Equal(t, int64(5), counterTotal(t, rm, "outlet_rows_loaded"))
	assert.Equal(t, int64(1), counterTotal(t, rm, "outlet_missing_cells"))
	assert.Equal(t, int64(2), counterTotal(t, rm, "outlet_outliers"))
	assert.Equal(t, int64(15), counterTotal(t, rm, "outlet_groups"))
	assert.Equal(t, int64(1), counterTotal(t, rm, "outlet_pipeline_runs"))

	hist, ok := findMetric(rm, "outlet_stage_duration").Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 4)
}

func TestPipelineMetricsOnFailure(t *testing.T) {
	dir := t.TempDir()
	tel, _, reader := testTelemetry(t)
	p, _ := newTestPipeline(t, dir, "absent.xlsx", tel)

	_, err := p.Run(context.Background())
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sum, ok := findMetric(rm, "outlet_stage_errors").Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	errType, _ := sum.DataPoints[0].Attributes.Value("error_type")
	assert.Equal(t, "NOT_FOUND", errType.AsString())

	runs, ok := findMetric(rm, "outlet_pipeline_runs").Data.(metricdata.Sum[int64])
	require.True(t, ok)
	status, _ := runs.DataPoints[0].Attributes.Value("status")
	assert.Equal(t, string(RunStatusFailed), status.AsString())
}

func TestAnalyzerOptions(t *testing.T) {
	lo, hi := 10.0, 20.0
	opts := AnalyzerOptions(config.AnalysisConfig{
		IQRMultiplier: 3,
		Ranges: map[string]config.Range{
			"wastewater_volume": {Min: &lo, Max: &hi},
			"latitude":          {Max: &hi},
		},
	})

	assert.Equal(t, 3.0, opts.IQRMultiplier)
	assert.Equal(t, lo, opts.Ranges["wastewater_volume"].Min)
	assert.Equal(t, hi, opts.Ranges["wastewater_volume"].Max)
	assert.True(t, opts.Ranges["latitude"].Contains(-1000))
	assert.False(t, opts.Ranges["latitude"].Contains(21))
	assert.Equal(t, -180.0, opts.Ranges["longitude"].Min)
}

func findMetric(rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	return metricdata.Metrics{}
}

func counterTotal(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	sum, ok := findMetric(rm, name).Data.(metricdata.Sum[int64])
	require.True(t, ok, name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}
