package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"outletqa/internal/errors"
	"outletqa/pkg/contracts/domain"
)

// Summarizer groups outlet records and totals their discharge volumes.
type Summarizer struct {
	logger *slog.Logger
}

// NewSummarizer creates a new summarizer.
func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		logger: logger.With(slog.String("component", "summarizer")),
	}
}

type groupAcc struct {
	key     []string
	missing []bool
	count   int
	totals []float64
	valid  []int
}

// GroupBy partitions ds by the distinct combination of values in groupCols
// and, per group, counts records and sums each of sumCols. Missing grouping
// values are grouped under domain.MissingLabel, apart from cells that
// literally read the label, and missing numbers are left out of the sums.
// Groups are ordered by their key parts, byte-wise.
func (s *Summarizer) GroupBy(ctx context.Context, ds *domain.Dataset, groupCols, sumCols []string) (domain.Grouping, error) {
	if len(groupCols) == 0 {
		return domain.Grouping{}, errors.NewAppValidationError("grouping needs at least one column")
	}

	keyCols, keyIdx, sumDefs, sumIdx, err := resolveColumns(ds, groupCols, sumCols)
	if err != nil {
		return domain.Grouping{}, err
	}

	groups := make(map[string]*groupAcc)
	var mapKey strings.Builder
	for _, rec := range ds.Records {
		key := make([]string, len(keyIdx))
		var missing []bool
		mapKey.Reset()
		for i, idx := range keyIdx {
			v := valueAt(rec, idx)
			if v.Missing() {
				if missing == nil {
					missing = make([]bool, len(keyIdx))
				}
				missing[i] = true
				key[i] = domain.MissingLabel
				mapKey.WriteString("-;")
				continue
			}
			key[i] = v.Raw
			writeKeyPart(&mapKey, v.Raw)
		}

		acc, ok := groups[mapKey.String()]
		if !ok {
			acc = &groupAcc{
				key:     key,
				missing: missing,
				totals:  make([]float64, len(sumIdx)),
				valid:   make([]int, len(sumIdx)),
			}
			groups[mapKey.String()] = acc
		}

		acc.count++
		for i, idx := range sumIdx {
			v := valueAt(rec, idx)
			if v.Missing() {
				continue
			}
			acc.totals[i] += v.Number
			acc.valid[i]++
		}
	}

	result := domain.Grouping{
		Columns:    keyCols,
		SumColumns: sumDefs,
		Groups:     make([]domain.Group, 0, len(groups)),
	}
	for _, acc := range groups {
		sums := make([]domain.Sum, len(sumDefs))
		for i, c := range sumDefs {
			sums[i] = domain.Sum{Column: c.Key, Total: acc.totals[i], Valid: acc.valid[i]}
		}
		result.Groups = append(result.Groups, domain.Group{
			Key:     acc.key,
			Missing: acc.missing,
			Count:   acc.count,
			Sums:    sums,
		})
	}
	slices.SortFunc(result.Groups, compareGroups)

	s.logger.DebugContext(ctx, "grouping computed",
		slog.String("grouping", result.Name()),
		slog.Int("groups", len(result.Groups)),
		slog.Int("rows", result.TotalCount()))

	return result, nil
}

// writeKeyPart appends a length-prefixed value, so no cell text can make
// two different keys collide.
func writeKeyPart(b *strings.Builder, raw string) {
	b.WriteString(strconv.Itoa(len(raw)))
	b.WriteByte(':')
	b.WriteString(raw)
}

// compareGroups orders by key parts, byte-wise. A missing value sorts after
// a cell whose text equals the missing label.
func compareGroups(a, b domain.Group) int {
	if c := slices.Compare(a.Key, b.Key); c != 0 {
		return c
	}
	for i := range a.Key {
		am, bm := a.IsMissing(i), b.IsMissing(i)
		switch {
		case am == bm:
		case bm:
			return -1
		default:
			return 1
		}
	}
	return 0
}

// TopDischargerLimit is how many operating units the discharger ranking keeps.
const TopDischargerLimit = 10

// TopGroups ranks the groups of g by the total of sumCol, largest first, and
// keeps at most n. Ties keep the byte order of the keys. Groups with a
// missing key part are not ranked.
func TopGroups(g domain.Grouping, sumCol string, n int) (domain.Grouping, error) {
	pos := slices.IndexFunc(g.SumColumns, func(c domain.Column) bool { return c.Key == sumCol })
	if pos < 0 {
		return domain.Grouping{}, errors.NewSchemaError(
			fmt.Sprintf("ranking column %q is not summed by grouping %s", sumCol, g.Name()), nil)
	}

	ranked := make([]domain.Group, 0, len(g.Groups))
	for _, grp := range g.Groups {
		if slices.Contains(grp.Missing, true) {
			continue
		}
		ranked = append(ranked, grp)
	}
	slices.SortStableFunc(ranked, func(a, b domain.Group) int {
		at, bt := a.Sums[pos].Total, b.Sums[pos].Total
		switch {
		case at > bt:
			return -1
		case at < bt:
			return 1
		}
		return compareGroups(a, b)
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	return domain.Grouping{
		Columns:    g.Columns,
		SumColumns: g.SumColumns,
		Groups:     ranked,
	}, nil
}

// Filter returns the records of ds accepted by keep, as a dataset with the same columns.
func Filter(ds *domain.Dataset, keep func(domain.Record) bool) *domain.Dataset {
	var matched []domain.Record
	for _, rec := range ds.Records {
		if keep(rec) {
			matched = append(matched, rec)
		}
	}
	return ds.Subset(matched)
}

// resolveColumns looks up grouping and sum columns in the dataset. Every
// unknown or non-numeric column is reported in one SCHEMA error.
func resolveColumns(ds *domain.Dataset, groupCols, sumCols []string) ([]domain.Column, []int, []domain.Column, []int, error) {
	var merr *multierror.Error

	keyCols := make([]domain.Column, 0, len(groupCols))
	keyIdx := make([]int, 0, len(groupCols))
	for _, key := range groupCols {
		idx, ok := ds.ColumnIndex(key)
		if !ok {
			merr = multierror.Append(merr, fmt.Errorf("grouping column %q not in dataset", key))
			continue
		}
		keyCols = append(keyCols, ds.Columns[idx])
		keyIdx = append(keyIdx, idx)
	}

	sumDefs := make([]domain.Column, 0, len(sumCols))
	sumIdx := make([]int, 0, len(sumCols))
	for _, key := range sumCols {
		idx, ok := ds.ColumnIndex(key)
		if !ok {
			merr = multierror.Append(merr, fmt.Errorf("sum column %q not in dataset", key))
			continue
		}
		col := ds.Columns[idx]
		if !col.IsNumeric() {
			merr = multierror.Append(merr, fmt.Errorf("sum column %q is not numeric", key))
			continue
		}
		sumDefs = append(sumDefs, col)
		sumIdx = append(sumIdx, idx)
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, nil, nil, nil, errors.NewSchemaError("invalid aggregation columns", err)
	}
	return keyCols, keyIdx, sumDefs, sumIdx, nil
}

func valueAt(rec domain.Record, idx int) domain.Value {
	if idx < len(rec.Values) {
		return rec.Values[idx]
	}
	return domain.Value{}
}
