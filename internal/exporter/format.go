package exporter

import (
	"fmt"
	"strconv"
	"strings"
)

// formatFloat formats a value with exactly 2 decimal places
func formatFloat(f float64) string {
	if f == 0 {
		f = 0 // drop negative zero
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatPercent formats a percentage with one decimal place
func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// formatRows lists row numbers, truncated after limit entries.
func formatRows(rows []int, limit int) string {
	if len(rows) == 0 {
		return "-"
	}
	shown := rows
	if len(shown) > limit {
		shown = shown[:limit]
	}
	parts := make([]string, len(shown))
	for i, r := range shown {
		parts[i] = strconv.Itoa(r)
	}
	out := strings.Join(parts, ", ")
	if extra := len(rows) - len(shown); extra > 0 {
		out += fmt.Sprintf(" …and %d more", extra)
	}
	return out
}

// cell escapes text for use inside a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// tableRow joins cells into one markdown table line.
func tableRow(cells ...string) string {
	return "| " + strings.Join(cells, " | ") + " |\n"
}

// tableHeader returns the header line and the separator line of a table.
func tableHeader(cells ...string) string {
	sep := make([]string, len(cells))
	for i := range sep {
		sep[i] = "---"
	}
	return tableRow(cells...) + tableRow(sep...)
}
