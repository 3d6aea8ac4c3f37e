package dataprocessing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outletqa/internal/shared/testutil"
	"outletqa/pkg/contracts/domain"
)

// datasetFromRows builds a dataset the same way the loader does, from a
// header row followed by data rows.
func datasetFromRows(t *testing.T, header []string, rows [][]string) *domain.Dataset {
	t.Helper()
	ds, err := NewLoader(nil).buildDataset("test", append([][]string{header}, rows...))
	require.NoError(t, err)
	return ds
}

func TestAnalyzeSample(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	ds := datasetFromRows(t, testutil.OutletHeader, testutil.SampleOutletRows())

	report := NewAnalyzer(DefaultAnalyzerOptions(), logger).Analyze(context.Background(), ds)

	assert.Equal(t, 5, report.Rows)
	assert.Equal(t, len(testutil.OutletHeader), report.ColumnCount)
	require.Len(t, report.Columns, len(testutil.OutletHeader))

	wastewater, ok := report.Column(domain.ColWastewaterVolume)
	require.True(t, ok)
	assert.Equal(t, 1, wastewater.Missing)
	assert.InDelta(t, 20.0, wastewater.MissingPercent, 1e-9)
	assert.Equal(t, domain.CompletenessPartial, wastewater.Completeness)
	require.NotNil(t, wastewater.Stats)
	assert.Equal(t, 4, wastewater.Stats.Count)
	assert.InDelta(t, 5.5, wastewater.Stats.Mean, 1e-9)
	assert.InDelta(t, -2, wastewater.Stats.Min, 1e-9)
	assert.InDelta(t, 12.5, wastewater.Stats.Max, 1e-9)

	// -2 sits inside the IQR fences but below the plausible range.
	assert.True(t, wastewater.Bounds.Applied)
	assert.InDelta(t, 2.125, wastewater.Bounds.Q1, 1e-9)
	assert.InDelta(t, 9.125, wastewater.Bounds.Q3, 1e-9)
	assert.InDelta(t, -8.375, wastewater.Bounds.Lower, 1e-9)
	assert.InDelta(t, 19.625, wastewater.Bounds.Upper, 1e-9)
	assert.Equal(t, []int{6}, wastewater.OutlierRows)
	assert.Equal(t, 1, wastewater.Outliers)

	cooling, ok := report.Column(domain.ColCoolingWaterVolume)
	require.True(t, ok)
	assert.Equal(t, 0, cooling.Missing)
	assert.Equal(t, domain.CompletenessGood, cooling.Completeness)
	assert.Equal(t, []int{4}, cooling.OutlierRows)

	province, ok := report.Column(domain.ColProvince)
	require.True(t, ok)
	assert.Nil(t, province.Stats)
	assert.Zero(t, province.Outliers)

	assert.Equal(t, 1, report.MissingCells())
	assert.Equal(t, 2, report.OutlierCount())
	testutil.AssertNoErrors(t, logs)
}

func TestAnalyzeMissingNeverExceedsRows(t *testing.T) {
	header := []string{"省", "排污口类型", "入河废污水量(万吨年)", "冷却水排放量(万吨年)", "入河方式"}
	rows := [][]string{
		{"A", "", "1", "", ""},
		{"", "", "x", "", ""},
		{"B", "工业排污口", "", "", "明渠"},
	}
	ds := datasetFromRows(t, header, rows)

	report := NewAnalyzer(DefaultAnalyzerOptions(), nil).Analyze(context.Background(), ds)

	want := map[string]int{
		domain.ColProvince:           1,
		domain.ColOutletType:         2,
		domain.ColWastewaterVolume:   2,
		domain.ColCoolingWaterVolume: 3,
		domain.ColEntryMethod:        2,
	}
	for _, cq := range report.Columns {
		assert.LessOrEqual(t, cq.Missing, report.Rows, cq.Column.Key)
		assert.Equal(t, want[cq.Column.Key], cq.Missing, cq.Column.Key)
	}

	cooling, _ := report.Column(domain.ColCoolingWaterVolume)
	assert.InDelta(t, 100.0, cooling.MissingPercent, 1e-9)
	assert.Equal(t, domain.CompletenessPoor, cooling.Completeness)
	require.NotNil(t, cooling.Stats)
	assert.Zero(t, cooling.Stats.Count)
}

func TestAnalyzeIQRNeedsFourValues(t *testing.T) {
	header := []string{"省", "排污口类型", "入河废污水量(万吨年)", "冷却水排放量(万吨年)"}
	rows := [][]string{
		{"A", "t", "1", "0"},
		{"A", "t", "2", "0"},
		{"A", "t", "1000", "0"},
	}
	ds := datasetFromRows(t, header, rows)

	report := NewAnalyzer(DefaultAnalyzerOptions(), nil).Analyze(context.Background(), ds)

	wastewater, _ := report.Column(domain.ColWastewaterVolume)
	assert.False(t, wastewater.Bounds.Applied)
	assert.Empty(t, wastewater.OutlierRows)
}

func TestAnalyzeIQRFlagsExtremes(t *testing.T) {
	header := []string{"省", "排污口类型", "入河废污水量(万吨年)", "冷却水排放量(万吨年)"}
	rows := [][]string{
		{"A", "t", "10", "0"},
		{"A", "t", "11", "0"},
		{"A", "t", "12", "0"},
		{"A", "t", "13", "0"},
		{"A", "t", "500", "0"},
	}
	ds := datasetFromRows(t, header, rows)

	tests := []struct {
		name       string
		multiplier float64
		want       []int
	}{
		{name: "default fences", multiplier: 0, want: []int{6}},
		{name: "wide fences", multiplier: 1000, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultAnalyzerOptions()
			opts.IQRMultiplier = tt.multiplier
			report := NewAnalyzer(opts, nil).Analyze(context.Background(), ds)

			wastewater, _ := report.Column(domain.ColWastewaterVolume)
			assert.Equal(t, tt.want, wastewater.OutlierRows)
		})
	}
}

func TestAnalyzeEmptyDataset(t *testing.T) {
	ds := datasetFromRows(t, testutil.OutletHeader, nil)

	report := NewAnalyzer(DefaultAnalyzerOptions(), nil).Analyze(context.Background(), ds)

	assert.Zero(t, report.Rows)
	for _, cq := range report.Columns {
		assert.Zero(t, cq.Missing)
		assert.Zero(t, cq.MissingPercent)
		assert.Equal(t, domain.CompletenessGood, cq.Completeness)
		assert.Empty(t, cq.OutlierRows)
	}
}

func TestNewAnalyzerDefaultsMultiplier(t *testing.T) {
	a := NewAnalyzer(AnalyzerOptions{IQRMultiplier: -1}, nil)
	assert.Equal(t, DefaultIQRMultiplier, a.opts.IQRMultiplier)
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{name: "first quartile", sorted: []float64{1, 2, 3, 4}, p: 0.25, want: 1.75},
		{name: "median even", sorted: []float64{1, 2, 3, 4}, p: 0.5, want: 2.5},
		{name: "third quartile", sorted: []float64{1, 2, 3, 4}, p: 0.75, want: 3.25},
		{name: "exact rank", sorted: []float64{1, 2, 3, 4, 5}, p: 0.25, want: 2},
		{name: "single value", sorted: []float64{5}, p: 0.75, want: 5},
		{name: "maximum", sorted: []float64{1, 9}, p: 1, want: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, quantile(tt.sorted, tt.p), 1e-9)
		})
	}

	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}

func TestDescribe(t *testing.T) {
	s := describe([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, s.Count)
	assert.InDelta(t, 5, s.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(32.0/7.0), s.StdDev, 1e-9)
	assert.InDelta(t, 2, s.Min, 1e-9)
	assert.InDelta(t, 9, s.Max, 1e-9)

	single := describe([]float64{3})
	assert.Zero(t, single.StdDev)
	assert.InDelta(t, 3, single.Mean, 1e-9)

	assert.Equal(t, &domain.NumericStats{}, describe(nil))
}

func TestRangeRuleContains(t *testing.T) {
	ranges := DefaultRanges()

	assert.True(t, ranges[domain.ColWastewaterVolume].Contains(0))
	assert.True(t, ranges[domain.ColWastewaterVolume].Contains(1e12))
	assert.False(t, ranges[domain.ColWastewaterVolume].Contains(-0.1))
	assert.True(t, ranges[domain.ColLatitude].Contains(-90))
	assert.False(t, ranges[domain.ColLatitude].Contains(91))
	assert.False(t, ranges[domain.ColLongitude].Contains(181))
	assert.True(t, ranges[domain.ColPH].Contains(14))
	assert.False(t, ranges[domain.ColPH].Contains(14.1))
	assert.False(t, ranges[domain.ColCOD].Contains(-1))
	assert.True(t, ranges[domain.ColFlow].Contains(0))
}

func TestAnalyzeWaterQualityColumns(t *testing.T) {
	header := append(append([]string{}, testutil.OutletHeader...),
		"COD（mg/L）", "氨氮（mg/L）", "总磷（mg/L ）", "pH", "流量（m3/d）")
	row := func(cod, nh3, tp, ph, flow string) []string {
		return append(testutil.OutletRow("河南省", "工业排污口", "工业废水", "1", "0"), cod, nh3, tp, ph, flow)
	}
	ds := datasetFromRows(t, header, [][]string{
		row("20", "1.0", "0.2", "7.1", "100"),
		row("", "", "", "7.3", ""),
		row("22", "", "", "15", ""),
		row("", "", "", "6.9", "-5"),
		row("", "", "", "7.0", ""),
	})
	for _, key := range domain.WaterQualityColumns {
		require.True(t, ds.HasColumn(key), key)
	}

	report := NewAnalyzer(DefaultAnalyzerOptions(), nil).Analyze(context.Background(), ds)

	tests := []struct {
		key          string
		missing      int
		completeness domain.Completeness
		outlierRows  []int
	}{
		{key: domain.ColCOD, missing: 3, completeness: domain.CompletenessPoor},
		{key: domain.ColAmmoniaNitrogen, missing: 4, completeness: domain.CompletenessPoor},
		{key: domain.ColTotalPhosphorus, missing: 4, completeness: domain.CompletenessPoor},
		{key: domain.ColPH, missing: 0, completeness: domain.CompletenessGood, outlierRows: []int{4}},
		{key: domain.ColFlow, missing: 3, completeness: domain.CompletenessPoor, outlierRows: []int{5}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cq, ok := report.Column(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.missing, cq.Missing)
			assert.Equal(t, tt.completeness, cq.Completeness)
			assert.Equal(t, tt.outlierRows, cq.OutlierRows)
			assert.Equal(t, len(tt.outlierRows), cq.Outliers)
		})
	}

	ph, _ := report.Column(domain.ColPH)
	require.True(t, ph.Bounds.Applied)
	assert.InDelta(t, 7.0, ph.Bounds.Q1, 1e-9)
	assert.InDelta(t, 7.3, ph.Bounds.Q3, 1e-9)
}
