package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"outletqa/pkg/contracts/domain"
)

const (
	// DefaultIQRMultiplier is the Tukey fence multiplier.
	DefaultIQRMultiplier = 1.5
	// MinValuesForIQR is the fewest valid values a column needs for the IQR rule.
	MinValuesForIQR = 4
)

// RangeRule bounds the plausible values of a numeric column, inclusive.
type RangeRule struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v lies within the rule
func (r RangeRule) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// AnalyzerOptions configures outlier detection.
type AnalyzerOptions struct {
	IQRMultiplier float64
	Ranges        map[string]RangeRule
}

// DefaultRanges returns the plausible ranges for the outlet schema: volumes,
// concentrations and flow are never negative, pH lies on its 0 to 14 scale
// and coordinates stay on the globe.
func DefaultRanges() map[string]RangeRule {
	nonNegative := RangeRule{Min: 0, Max: math.Inf(1)}
	return map[string]RangeRule{
		domain.ColWastewaterVolume:   nonNegative,
		domain.ColCoolingWaterVolume: nonNegative,
		domain.ColLongitude:          {Min: -180, Max: 180},
		domain.ColLatitude:           {Min: -90, Max: 90},
		domain.ColCOD:                nonNegative,
		domain.ColAmmoniaNitrogen:    nonNegative,
		domain.ColTotalPhosphorus:    nonNegative,
		domain.ColPH:                 {Min: 0, Max: 14},
		domain.ColFlow:               nonNegative,
	}
}

// DefaultAnalyzerOptions returns the options used when nothing is configured.
func DefaultAnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{
		IQRMultiplier: DefaultIQRMultiplier,
		Ranges:        DefaultRanges(),
	}
}

// Analyzer computes the data quality summary of a dataset.
type Analyzer struct {
	opts   AnalyzerOptions
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer. A non-positive multiplier falls back to 1.5.
func NewAnalyzer(opts AnalyzerOptions, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.IQRMultiplier <= 0 {
		opts.IQRMultiplier = DefaultIQRMultiplier
	}
	return &Analyzer{
		opts:   opts,
		logger: logger.With(slog.String("component", "analyzer")),
	}
}

// Analyze counts missing values per column and flags outliers in numeric
// columns. The dataset is not modified.
func (a *Analyzer) Analyze(ctx context.Context, ds *domain.Dataset) domain.QualityReport {
	rows := ds.Len()
	report := domain.QualityReport{
		Rows:        rows,
		ColumnCount: len(ds.Columns),
		Columns:     make([]domain.ColumnQuality, 0, len(ds.Columns)),
	}

	for _, col := range ds.Columns {
		cq := domain.ColumnQuality{Column: col}

		var values []float64
		var valueRows []int
		for _, rec := range ds.Records {
			v := ds.Value(rec, col.Key)
			if v.Missing() {
				cq.Missing++
				continue
			}
			if col.IsNumeric() {
				values = append(values, v.Number)
				valueRows = append(valueRows, rec.Row)
			}
		}

		if rows > 0 {
			cq.MissingPercent = float64(cq.Missing) / float64(rows) * 100
		}
		cq.Completeness = domain.CompletenessFor(cq.MissingPercent)

		if col.IsNumeric() {
			cq.Stats = describe(values)
			a.flagOutliers(&cq, values, valueRows)
		}

		report.Columns = append(report.Columns, cq)
	}

	a.logger.InfoContext(ctx, "quality analysis complete",
		slog.Int("rows", report.Rows),
		slog.Int("columns", report.ColumnCount),
		slog.Int("missing_cells", report.MissingCells()),
		slog.Int("outliers", report.OutlierCount()))

	return report
}

// flagOutliers applies the IQR fences and the plausible range rule. Row
// numbers come out ascending because values are in record order.
func (a *Analyzer) flagOutliers(cq *domain.ColumnQuality, values []float64, rows []int) {
	if len(values) >= MinValuesForIQR {
		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)

		q1 := quantile(sorted, 0.25)
		q3 := quantile(sorted, 0.75)
		iqr := q3 - q1
		cq.Bounds = domain.OutlierBounds{
			Q1:      q1,
			Q3:      q3,
			Lower:   q1 - a.opts.IQRMultiplier*iqr,
			Upper:   q3 + a.opts.IQRMultiplier*iqr,
			Applied: true,
		}
	}

	rule, hasRule := a.opts.Ranges[cq.Column.Key]
	for i, v := range values {
		outside := cq.Bounds.Applied && (v < cq.Bounds.Lower || v > cq.Bounds.Upper)
		if hasRule && !rule.Contains(v) {
			outside = true
		}
		if outside {
			cq.OutlierRows = append(cq.OutlierRows, rows[i])
		}
	}
	cq.Outliers = len(cq.OutlierRows)
}

// describe returns count, mean, sample standard deviation, min and max.
func describe(values []float64) *domain.NumericStats {
	s := &domain.NumericStats{Count: len(values)}
	if len(values) == 0 {
		return s
	}
	s.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	return s
}

// quantile interpolates linearly between the closest ranks at (n-1)*p of
// an ascending slice.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
