package dataprocessing

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/hashicorp/go-multierror"
	"github.com/xuri/excelize/v2"

	"outletqa/internal/errors"
	"outletqa/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// groupedNumber matches numbers written with comma thousands separators.
var groupedNumber = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)

// Loader reads the outlet register spreadsheet into a Dataset.
type Loader struct {
	logger *slog.Logger
	schema []domain.Column
}

// NewLoader creates a loader for the outlet schema.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger: logger.With(slog.String("component", "loader")),
		schema: domain.Schema(),
	}
}

// Load reads path (.xlsx/.xlsm workbook or .csv) and maps its header row onto
// the outlet schema. Errors are NOT_FOUND when the file does not exist,
// PARSING when it cannot be read as a table and SCHEMA when required columns
// are absent.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Dataset, error) {
	info, err := os.Stat(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.NewNotFoundError("input file "+path, err).WithContext("path", path)
	}
	if err != nil {
		return nil, errors.NewParsingError("failed to stat input file", err).WithContext("path", path)
	}
	if info.IsDir() {
		return nil, errors.NewParsingError(fmt.Sprintf("%s is a directory, not a spreadsheet", path), nil).
			WithContext("path", path)
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = l.readCSV(path)
	default:
		rows, err = l.readWorkbook(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	ds, err := l.buildDataset(path, rows)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", path),
		slog.Int("rows", ds.Len()),
		slog.Int("columns", len(ds.Columns)))

	return ds, nil
}

// readWorkbook returns the rows of the sheet holding the outlet register.
func (l *Loader) readWorkbook(ctx context.Context, path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.NewParsingError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewParsingError("workbook has no sheets", nil).WithContext("path", path)
	}

	// Prefer the first sheet whose header row carries every required column.
	var fallback [][]string
	fallbackFound := false
	for _, name := range sheets {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			l.logger.WarnContext(ctx, "skipping unreadable sheet",
				slog.String("sheet", name),
				slog.String("error", err.Error()))
			continue
		}
		if !fallbackFound {
			fallback = rows
			fallbackFound = true
		}
		if l.hasRequiredHeaders(rows) {
			l.logger.DebugContext(ctx, "found outlet register sheet", slog.String("sheet", name))
			return rows, nil
		}
	}

	if !fallbackFound {
		return nil, errors.NewParsingError("no readable sheet in workbook", nil).WithContext("path", path)
	}
	return fallback, nil
}

// readCSV reads a comma separated export of the register, dropping a UTF-8 BOM.
func (l *Loader) readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewParsingError("failed to open CSV file", err).WithContext("path", path)
	}
	defer file.Close()

	br := bufio.NewReader(file)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, errors.NewParsingError("failed to read CSV file", err).WithContext("path", path)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParsingError("failed to parse CSV file", err).WithContext("path", path)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// hasRequiredHeaders reports whether the header row of rows covers the required columns.
func (l *Loader) hasRequiredHeaders(rows [][]string) bool {
	headerIdx := firstNonEmptyRow(rows)
	if headerIdx < 0 {
		return false
	}
	positions := mapHeader(rows[headerIdx])
	for _, c := range l.schema {
		if !c.Required {
			continue
		}
		if _, ok := findColumn(positions, c); !ok {
			return false
		}
	}
	return true
}

// buildDataset maps the header row onto the schema and converts every data row.
func (l *Loader) buildDataset(source string, rows [][]string) (*domain.Dataset, error) {
	headerIdx := firstNonEmptyRow(rows)
	var header []string
	if headerIdx >= 0 {
		header = rows[headerIdx]
	}
	positions := mapHeader(header)

	var (
		columns []domain.Column
		indexes []int
		missing []string
		merr    *multierror.Error
	)
	for _, c := range l.schema {
		idx, ok := findColumn(positions, c)
		if !ok {
			if c.Required {
				missing = append(missing, c.Key)
				merr = multierror.Append(merr, fmt.Errorf("column %q (%s) not found in header", c.Key, c.Header))
			}
			continue
		}
		columns = append(columns, c)
		indexes = append(indexes, idx)
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, errors.NewSchemaError("required columns missing", err).
			WithContext("path", source).
			WithContext("missing", missing)
	}

	records := make([]domain.Record, 0, len(rows))
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		values := make([]domain.Value, len(columns))
		for j, c := range columns {
			values[j] = parseCell(c, cellAt(row, indexes[j]))
		}
		records = append(records, domain.Record{Row: i + 1, Values: values})
	}

	return domain.NewDataset(source, columns, records), nil
}

// parseCell interprets a raw cell for its column. Number cells that are
// empty or not numeric are treated as missing. Commas are accepted only as
// thousands separators, so "1,5" is missing rather than 15.
func parseCell(c domain.Column, raw string) domain.Value {
	raw = strings.TrimSpace(raw)
	if c.Kind != domain.KindNumber {
		return domain.Value{Raw: raw, Valid: raw != ""}
	}
	if raw == "" {
		return domain.Value{}
	}
	digits := raw
	if groupedNumber.MatchString(raw) {
		digits = strings.ReplaceAll(raw, ",", "")
	}
	n, err := strconv.ParseFloat(digits, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return domain.Value{Raw: raw}
	}
	return domain.Value{Raw: raw, Number: n, Valid: true}
}

// mapHeader indexes header cells by their normalized text. The first
// occurrence of a duplicated header wins.
func mapHeader(header []string) map[string]int {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}
	return positions
}

// findColumn looks a schema column up by header, aliases and key.
func findColumn(positions map[string]int, c domain.Column) (int, bool) {
	candidates := append([]string{c.Header, c.Key}, c.Aliases...)
	for _, name := range candidates {
		if idx, ok := positions[normalizeHeader(name)]; ok {
			return idx, true
		}
	}
	return 0, false
}

// normalizeHeader folds full-width parentheses, drops whitespace and lowercases.
func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range h {
		switch {
		case unicode.IsSpace(r):
			continue
		case r == '（':
			r = '('
		case r == '）':
			r = ')'
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func firstNonEmptyRow(rows [][]string) int {
	for i, row := range rows {
		if !isBlankRow(row) {
			return i
		}
	}
	return -1
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
