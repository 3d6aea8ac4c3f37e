package domain

import "strings"

// MissingLabel stands in for an empty grouping value so that every record
// lands in exactly one group.
const MissingLabel = "(missing)"

// Sum is the total of one numeric column within a group. Missing cells are
// left out of Total and not counted in Valid.
type Sum struct {
	Column string  `json:"column"`
	Total  float64 `json:"total"`
	Valid  int     `json:"valid"`
}

// Group is one distinct combination of grouping values. Missing marks the
// key parts that stand for empty cells; it is nil when no part is missing.
type Group struct {
	Key     []string `json:"key"`
	Missing []bool   `json:"missing,omitempty"`
	Count   int      `json:"count"`
	Sums    []Sum    `json:"sums"`
}

// IsMissing reports whether key part i stands for an empty cell
func (g Group) IsMissing(i int) bool {
	return i < len(g.Missing) && g.Missing[i]
}

// Label joins the key parts for display
func (g Group) Label() string {
	return strings.Join(g.Key, " / ")
}

// Grouping is the aggregator output for one set of grouping columns.
type Grouping struct {
	Columns    []Column `json:"columns"`
	SumColumns []Column `json:"sum_columns"`
	Groups     []Group  `json:"groups"`
}

// Name returns the grouping column keys joined with "+"
func (g Grouping) Name() string {
	keys := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		keys[i] = c.Key
	}
	return strings.Join(keys, "+")
}

// TotalCount sums the row counts of all groups
func (g Grouping) TotalCount() int {
	total := 0
	for _, grp := range g.Groups {
		total += grp.Count
	}
	return total
}

// Totals sums every numeric column across all groups.
func (g Grouping) Totals() []Sum {
	totals := make([]Sum, len(g.SumColumns))
	for i, c := range g.SumColumns {
		totals[i].Column = c.Key
	}
	for _, grp := range g.Groups {
		for i, s := range grp.Sums {
			if i >= len(totals) {
				break
			}
			totals[i].Total += s.Total
			totals[i].Valid += s.Valid
		}
	}
	return totals
}
