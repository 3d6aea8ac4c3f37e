package domain

// Completeness grades how much of a column is filled in.
type Completeness string

const (
	CompletenessGood    Completeness = "good"
	CompletenessPartial Completeness = "partial"
	CompletenessPoor    Completeness = "poor"
)

// CompletenessFor grades a missing percentage: below 5% is good, below 50% partial.
func CompletenessFor(missingPercent float64) Completeness {
	switch {
	case missingPercent < 5:
		return CompletenessGood
	case missingPercent < 50:
		return CompletenessPartial
	default:
		return CompletenessPoor
	}
}

// NumericStats holds descriptive statistics over the valid values of a column
type NumericStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// OutlierBounds are the Tukey fences used for a column.
type OutlierBounds struct {
	Q1      float64 `json:"q1"`
	Q3      float64 `json:"q3"`
	Lower   float64 `json:"lower"`
	Upper   float64 `json:"upper"`
	Applied bool    `json:"applied"`
}

// ColumnQuality is the quality summary of one column.
type ColumnQuality struct {
	Column         Column        `json:"column"`
	Missing        int           `json:"missing"`
	MissingPercent float64       `json:"missing_percent"`
	Completeness   Completeness  `json:"completeness"`
	Outliers       int           `json:"outliers"`
	OutlierRows    []int         `json:"outlier_rows,omitempty"`
	Bounds         OutlierBounds `json:"bounds"`
	Stats          *NumericStats `json:"stats,omitempty"`
}

// QualityReport is the output of the quality analyzer
type QualityReport struct {
	Rows        int             `json:"rows"`
	ColumnCount int             `json:"column_count"`
	Columns     []ColumnQuality `json:"columns"`
}

// Column returns the quality entry for key.
func (q QualityReport) Column(key string) (ColumnQuality, bool) {
	for _, c := range q.Columns {
		if c.Column.Key == key {
			return c, true
		}
	}
	return ColumnQuality{}, false
}

// MissingCells totals missing cells across all columns
func (q QualityReport) MissingCells() int {
	total := 0
	for _, c := range q.Columns {
		total += c.Missing
	}
	return total
}

// OutlierCount totals outlier flags across all columns
func (q QualityReport) OutlierCount() int {
	total := 0
	for _, c := range q.Columns {
		total += c.Outliers
	}
	return total
}
