package exporter

import (
	"bytes"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"outletqa/pkg/contracts/domain"
)

const (
	// ReportTitle is the first line of every report.
	ReportTitle = "南水北调中线水源区排污口数据分析报告"
	// maxListedRows caps the outlier row numbers printed per column.
	maxListedRows = 20
	// CoolingWaterMarker identifies cooling water outlets in the discharge feature.
	CoolingWaterMarker = "冷却水"
)

// SkippedGrouping is a configured grouping that could not be computed for
// the loaded file.
type SkippedGrouping struct {
	Name   string
	Reason string
}

// Data is everything the report shows.
type Data struct {
	Source    string
	Quality   domain.QualityReport
	Groupings []domain.Grouping
	Skipped   []SkippedGrouping
	// Cooling groups cooling water outlets by province. Nil when the file
	// has no discharge feature column.
	Cooling *domain.Grouping
	// TopDischargers lists operating units by wastewater total, largest
	// first. Nil when the file has no unit name column.
	TopDischargers *domain.Grouping
}

// Render formats the report as markdown. The output depends only on data.
func Render(data Data) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s\n\n", ReportTitle)
	writeOverview(&b, data)
	writeMissing(&b, data.Quality)
	writeOutliers(&b, data.Quality)
	writeStats(&b, data.Quality)
	writeGroupings(&b, data)
	writeCooling(&b, data.Cooling)
	writeTopDischargers(&b, data.TopDischargers)
	writeAssessment(&b, data.Quality)

	return b.Bytes()
}

func writeOverview(b *bytes.Buffer, data Data) {
	q := data.Quality
	b.WriteString("## 1. Dataset Overview\n\n")
	fmt.Fprintf(b, "- Source file: %s\n", filepath.Base(data.Source))
	fmt.Fprintf(b, "- Records: %d\n", q.Rows)
	fmt.Fprintf(b, "- Columns: %d\n", q.ColumnCount)

	headers := make([]string, len(q.Columns))
	for i, cq := range q.Columns {
		headers[i] = cq.Column.Header
	}
	if len(headers) > 0 {
		fmt.Fprintf(b, "- Column list: %s\n", strings.Join(headers, ", "))
	}
	b.WriteString("\n")
}

func writeMissing(b *bytes.Buffer, q domain.QualityReport) {
	b.WriteString("## 2. Missing Values\n\n")
	b.WriteString(tableHeader("Column", "Missing", "Percent", "Completeness"))
	for _, cq := range q.Columns {
		b.WriteString(tableRow(
			cell(cq.Column.Header),
			fmt.Sprint(cq.Missing),
			formatPercent(cq.MissingPercent),
			string(cq.Completeness),
		))
	}
	fmt.Fprintf(b, "\nTotal missing cells: %d\n\n", q.MissingCells())
}

func writeOutliers(b *bytes.Buffer, q domain.QualityReport) {
	b.WriteString("## 3. Outliers\n\n")
	b.WriteString("Values outside the IQR fences [Lower, Upper] or outside the plausible range of the column. ")
	b.WriteString("Fences are computed for columns with at least four values.\n\n")
	b.WriteString(tableHeader("Column", "Outliers", "Q1", "Q3", "Lower", "Upper", "Rows"))
	for _, cq := range q.Columns {
		if !cq.Column.IsNumeric() {
			continue
		}
		q1, q3, lower, upper := "-", "-", "-", "-"
		if cq.Bounds.Applied {
			q1 = formatFloat(cq.Bounds.Q1)
			q3 = formatFloat(cq.Bounds.Q3)
			lower = formatFloat(cq.Bounds.Lower)
			upper = formatFloat(cq.Bounds.Upper)
		}
		b.WriteString(tableRow(
			cell(cq.Column.Header),
			fmt.Sprint(cq.Outliers),
			q1, q3, lower, upper,
			formatRows(cq.OutlierRows, maxListedRows),
		))
	}
	fmt.Fprintf(b, "\nTotal outliers: %d\n\n", q.OutlierCount())
}

func writeStats(b *bytes.Buffer, q domain.QualityReport) {
	b.WriteString("## 4. Descriptive Statistics\n\n")
	b.WriteString(tableHeader("Column", "Count", "Mean", "Std Dev", "Min", "Max"))
	for _, cq := range q.Columns {
		if cq.Stats == nil {
			continue
		}
		s := cq.Stats
		if s.Count == 0 {
			b.WriteString(tableRow(cell(cq.Column.Header), "0", "-", "-", "-", "-"))
			continue
		}
		b.WriteString(tableRow(
			cell(cq.Column.Header),
			fmt.Sprint(s.Count),
			formatFloat(s.Mean),
			formatFloat(s.StdDev),
			formatFloat(s.Min),
			formatFloat(s.Max),
		))
	}
	b.WriteString("\n")
}

func writeGroupings(b *bytes.Buffer, data Data) {
	b.WriteString("## 5. Grouped Statistics\n\n")
	if len(data.Groupings) == 0 && len(data.Skipped) == 0 {
		b.WriteString("No groupings configured.\n\n")
		return
	}
	for i, g := range data.Groupings {
		fmt.Fprintf(b, "### 5.%d By %s\n\n", i+1, groupingTitle(g))
		writeGroupTable(b, g)
	}
	for _, s := range data.Skipped {
		fmt.Fprintf(b, "Skipped grouping %s: %s.\n", s.Name, s.Reason)
	}
	if len(data.Skipped) > 0 {
		b.WriteString("\n")
	}
}

func groupingTitle(g domain.Grouping) string {
	headers := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		headers[i] = c.Header
	}
	return strings.Join(headers, " + ")
}

func writeGroupTable(b *bytes.Buffer, g domain.Grouping) {
	header := make([]string, 0, len(g.Columns)+1+2*len(g.SumColumns))
	for _, c := range g.Columns {
		header = append(header, cell(c.Header))
	}
	header = append(header, "Count")
	for _, c := range g.SumColumns {
		header = append(header, cell(c.Header)+" Sum", cell(c.Header)+" Valid")
	}
	b.WriteString(tableHeader(header...))

	for _, grp := range g.Groups {
		row := make([]string, 0, len(header))
		for _, k := range grp.Key {
			row = append(row, cell(k))
		}
		row = append(row, fmt.Sprint(grp.Count))
		for _, s := range grp.Sums {
			row = append(row, formatFloat(s.Total), fmt.Sprint(s.Valid))
		}
		b.WriteString(tableRow(row...))
	}

	total := make([]string, 0, len(header))
	total = append(total, "**Total**")
	for i := 1; i < len(g.Columns); i++ {
		total = append(total, "")
	}
	total = append(total, fmt.Sprint(g.TotalCount()))
	for _, s := range g.Totals() {
		total = append(total, formatFloat(s.Total), fmt.Sprint(s.Valid))
	}
	b.WriteString(tableRow(total...))
	b.WriteString("\n")
}

func writeCooling(b *bytes.Buffer, cooling *domain.Grouping) {
	b.WriteString("## 6. Cooling Water Outlets\n\n")
	switch {
	case cooling == nil:
		b.WriteString("The input has no discharge feature column; cooling water outlets were not identified.\n\n")
	case cooling.TotalCount() == 0:
		fmt.Fprintf(b, "No outlet lists %s in its discharge feature.\n\n", CoolingWaterMarker)
	default:
		fmt.Fprintf(b, "%d outlets list %s in their discharge feature.\n\n", cooling.TotalCount(), CoolingWaterMarker)
		writeGroupTable(b, *cooling)
	}
}

func writeTopDischargers(b *bytes.Buffer, top *domain.Grouping) {
	b.WriteString("## 7. Top Dischargers\n\n")
	switch {
	case top == nil:
		b.WriteString("The input has no operating unit column; dischargers were not ranked.\n\n")
		return
	case len(top.Groups) == 0:
		b.WriteString("No outlet names its operating unit.\n\n")
		return
	}

	ranked := "wastewater"
	if len(top.SumColumns) > 0 {
		ranked = top.SumColumns[0].Header
	}
	fmt.Fprintf(b, "Operating units ranked by total %s, top %d.\n\n", ranked, len(top.Groups))

	header := []string{"Rank"}
	for _, c := range top.Columns {
		header = append(header, cell(c.Header))
	}
	header = append(header, "Outlets")
	for _, c := range top.SumColumns {
		header = append(header, cell(c.Header)+" Sum")
	}
	b.WriteString(tableHeader(header...))
	for i, grp := range top.Groups {
		row := []string{fmt.Sprint(i + 1)}
		for _, k := range grp.Key {
			row = append(row, cell(k))
		}
		row = append(row, fmt.Sprint(grp.Count))
		for _, s := range grp.Sums {
			row = append(row, formatFloat(s.Total))
		}
		b.WriteString(tableRow(row...))
	}
	b.WriteString("\n")
}

func writeAssessment(b *bytes.Buffer, q domain.QualityReport) {
	b.WriteString("## 8. Data Quality Assessment\n\n")
	if q.Rows == 0 {
		b.WriteString("- The dataset has no records; nothing to assess.\n")
		return
	}

	var poor, partial, withOutliers []string
	for _, cq := range q.Columns {
		switch cq.Completeness {
		case domain.CompletenessPoor:
			poor = append(poor, fmt.Sprintf("%s (%s)", cq.Column.Header, formatPercent(cq.MissingPercent)))
		case domain.CompletenessPartial:
			partial = append(partial, fmt.Sprintf("%s (%s)", cq.Column.Header, formatPercent(cq.MissingPercent)))
		}
		if cq.Outliers > 0 {
			withOutliers = append(withOutliers, fmt.Sprintf("%s (%d)", cq.Column.Header, cq.Outliers))
		}
	}

	cells := q.Rows * q.ColumnCount
	filled := 100.0
	if cells > 0 {
		filled = float64(cells-q.MissingCells()) / float64(cells) * 100
	}
	fmt.Fprintf(b, "- Overall completeness: %s of %d cells filled\n", formatPercent(filled), cells)
	fmt.Fprintf(b, "- Poorly filled columns (>= 50%% missing): %s\n", listOrNone(poor))
	fmt.Fprintf(b, "- Partially filled columns (5%% to 50%% missing): %s\n", listOrNone(partial))
	fmt.Fprintf(b, "- Columns with outliers: %s\n", listOrNone(withOutliers))
	writeWaterQuality(b, q)

	switch {
	case len(poor) == 0 && len(partial) == 0 && len(withOutliers) == 0:
		b.WriteString("- Conclusion: the register is complete and no implausible values were found.\n")
	case len(poor) > 0:
		b.WriteString("- Conclusion: some columns are too sparse for reliable statistics; verify them at the source before use.\n")
	default:
		b.WriteString("- Conclusion: the register is usable; review the listed rows before drawing conclusions.\n")
	}
}

// writeWaterQuality summarizes how much of the water quality monitoring is filled in.
func writeWaterQuality(b *bytes.Buffer, q domain.QualityReport) {
	var headers []string
	missing := 0
	for _, cq := range q.Columns {
		if !slices.Contains(domain.WaterQualityColumns, cq.Column.Key) {
			continue
		}
		headers = append(headers, cq.Column.Header)
		missing += cq.Missing
	}
	if len(headers) == 0 {
		b.WriteString("- Water quality indicators: not present in the input\n")
		return
	}
	cells := q.Rows * len(headers)
	fmt.Fprintf(b, "- Water quality indicators (%s): %d of %d cells missing (%s)\n",
		strings.Join(headers, ", "), missing, cells, formatPercent(float64(missing)/float64(cells)*100))
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
