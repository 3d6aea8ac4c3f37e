package operations

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"outletqa/internal/dataprocessing"
	"outletqa/internal/exporter"
	"outletqa/internal/validation"
	"outletqa/pkg/contracts/domain"
)

// Stage IDs
const (
	StageIDLoad      = "load"
	StageIDAnalyze   = "analyze"
	StageIDAggregate = "aggregate"
	StageIDReport    = "report"
)

// LoadStage validates and reads the outlet register
type LoadStage struct {
	BaseStage
	validator *validation.FileValidator
	loader    *dataprocessing.Loader
}

// NewLoadStage creates the load stage
func NewLoadStage(validator *validation.FileValidator, loader *dataprocessing.Loader) *LoadStage {
	return &LoadStage{
		BaseStage: NewBaseStage(StageIDLoad, "Load"),
		validator: validator,
		loader:    loader,
	}
}

// Execute loads state.InputPath into state.Dataset
func (s *LoadStage) Execute(ctx context.Context, state *RunState) error {
	if err := s.validator.ValidateInputFile(state.InputPath); err != nil {
		return err
	}
	ds, err := s.loader.Load(ctx, state.InputPath)
	if err != nil {
		return err
	}
	state.Dataset = ds
	return nil
}

// AnalyzeStage computes the data quality summary
type AnalyzeStage struct {
	BaseStage
	analyzer *dataprocessing.Analyzer
}

// NewAnalyzeStage creates the analyze stage
func NewAnalyzeStage(analyzer *dataprocessing.Analyzer) *AnalyzeStage {
	return &AnalyzeStage{
		BaseStage: NewBaseStage(StageIDAnalyze, "Analyze"),
		analyzer:  analyzer,
	}
}

// Execute fills state.Quality
func (s *AnalyzeStage) Execute(ctx context.Context, state *RunState) error {
	state.Quality = s.analyzer.Analyze(ctx, state.Dataset)
	return nil
}

// AggregateStage computes the grouping tables and the cooling water subset
type AggregateStage struct {
	BaseStage
	summarizer *dataprocessing.Summarizer
	groupings  [][]string
	sumColumns []string
	logger     *slog.Logger
}

// NewAggregateStage creates the aggregate stage
func NewAggregateStage(summarizer *dataprocessing.Summarizer, groupings [][]string, sumColumns []string, logger *slog.Logger) *AggregateStage {
	return &AggregateStage{
		BaseStage:  NewBaseStage(StageIDAggregate, "Aggregate"),
		summarizer: summarizer,
		groupings:  groupings,
		sumColumns: sumColumns,
		logger:     logger,
	}
}

// Execute fills state.Groupings, state.Skipped, state.TopDischargers and
// state.Cooling. Groupings over optional columns the file does not have are
// skipped with a warning.
func (s *AggregateStage) Execute(ctx context.Context, state *RunState) error {
	ds := state.Dataset
	sumCols := presentColumns(ds, s.sumColumns)

	for _, keys := range s.groupings {
		name := strings.Join(keys, "+")
		if absent := absentColumns(ds, keys); len(absent) > 0 {
			reason := fmt.Sprintf("column %s not present in input", strings.Join(absent, ", "))
			s.logger.WarnContext(ctx, "grouping skipped",
				slog.String("grouping", name),
				slog.String("reason", reason))
			state.Skipped = append(state.Skipped, exporter.SkippedGrouping{Name: name, Reason: reason})
			continue
		}

		g, err := s.summarizer.GroupBy(ctx, ds, keys, sumCols)
		if err != nil {
			return fmt.Errorf("grouping %s: %w", name, err)
		}
		state.Groupings = append(state.Groupings, g)
	}

	if err := s.rankDischargers(ctx, state); err != nil {
		return err
	}

	if !ds.HasColumn(domain.ColDischargeFeature) {
		return nil
	}
	cooling := dataprocessing.Filter(ds, func(rec domain.Record) bool {
		return strings.Contains(ds.Text(rec, domain.ColDischargeFeature), exporter.CoolingWaterMarker)
	})
	g, err := s.summarizer.GroupBy(ctx, cooling, []string{domain.ColProvince}, []string{domain.ColCoolingWaterVolume})
	if err != nil {
		return fmt.Errorf("cooling water outlets: %w", err)
	}
	state.Cooling = &g

	s.logger.InfoContext(ctx, "aggregation complete",
		slog.Int("groupings", len(state.Groupings)),
		slog.Int("skipped", len(state.Skipped)),
		slog.Int("cooling_outlets", cooling.Len()))
	return nil
}

// rankDischargers totals the discharge volumes per operating unit and keeps
// the largest wastewater dischargers. Nothing is ranked without a unit column.
func (s *AggregateStage) rankDischargers(ctx context.Context, state *RunState) error {
	ds := state.Dataset
	if !ds.HasColumn(domain.ColUnitName) {
		return nil
	}
	units, err := s.summarizer.GroupBy(ctx, ds, []string{domain.ColUnitName},
		[]string{domain.ColWastewaterVolume, domain.ColCoolingWaterVolume})
	if err != nil {
		return fmt.Errorf("top dischargers: %w", err)
	}
	top, err := dataprocessing.TopGroups(units, domain.ColWastewaterVolume, dataprocessing.TopDischargerLimit)
	if err != nil {
		return fmt.Errorf("top dischargers: %w", err)
	}
	state.TopDischargers = &top

	s.logger.DebugContext(ctx, "dischargers ranked",
		slog.Int("units", len(units.Groups)),
		slog.Int("listed", len(top.Groups)))
	return nil
}

func absentColumns(ds *domain.Dataset, keys []string) []string {
	var absent []string
	for _, k := range keys {
		if !ds.HasColumn(k) {
			absent = append(absent, k)
		}
	}
	return absent
}

func presentColumns(ds *domain.Dataset, keys []string) []string {
	present := make([]string, 0, len(keys))
	for _, k := range keys {
		if ds.HasColumn(k) {
			present = append(present, k)
		}
	}
	return present
}

// ReportStage renders and writes the markdown report
type ReportStage struct {
	BaseStage
	validator *validation.FileValidator
	writer    *exporter.Writer
}

// NewReportStage creates the report stage
func NewReportStage(validator *validation.FileValidator, writer *exporter.Writer) *ReportStage {
	return &ReportStage{
		BaseStage: NewBaseStage(StageIDReport, "Report"),
		validator: validator,
		writer:    writer,
	}
}

// Execute checks the report directory and writes the report
func (s *ReportStage) Execute(ctx context.Context, state *RunState) error {
	if err := s.validator.ValidateOutputDirectory(filepath.Dir(s.writer.Path())); err != nil {
		return err
	}
	return s.writer.Write(ctx, state.ReportData())
}
