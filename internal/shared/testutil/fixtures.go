package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// OutletHeader is the header row of the regional outlet register workbook.
var OutletHeader = []string{
	"省", "市", "县", "排污口名称", "排污口类型", "排水特征-主要特征", "入河方式",
	"地理位置经度", "地理位置纬度", "入河废污水量(万吨年)", "冷却水排放量(万吨年)",
}

// OutletRow builds one register row in OutletHeader order. Empty strings
// become empty cells.
func OutletRow(province, outletType, feature, wastewater, cooling string) []string {
	return []string{
		province, "南阳市", "淅川县", "排污口" + province, outletType, feature, "明渠",
		"111.49", "33.14", wastewater, cooling,
	}
}

// SampleOutletRows is a small register with one missing wastewater value,
// one cooling water outlet and one implausible negative volume.
func SampleOutletRows() [][]string {
	return [][]string{
		OutletRow("河南省", "工业排污口", "工业废水", "12.5", "0"),
		OutletRow("河南省", "生活污水排污口", "生活污水", "", "0"),
		OutletRow("湖北省", "工业排污口", "冷却水", "3.5", "120"),
		OutletRow("陕西省", "混合废污水排污口", "混合废污水", "8", "0"),
		OutletRow("湖北省", "工业排污口", "工业废水", "-2", "0"),
	}
}

// WriteWorkbook saves header and rows as the first sheet of a new xlsx file
// in dir and returns its path. Numeric looking cells are stored as numbers.
func WriteWorkbook(t *testing.T, dir, name string, header []string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	all := append([][]string{header}, rows...)
	for r, row := range all {
		for c, val := range row {
			if val == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, cellValue(val, r == 0)))
		}
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

// WriteCSV saves header and rows as a CSV file, optionally with a UTF-8 BOM.
func WriteCSV(t *testing.T, dir, name string, header []string, rows [][]string, bom bool) string {
	t.Helper()

	var b strings.Builder
	if bom {
		b.WriteString("\xEF\xBB\xBF")
	}
	for _, row := range append([][]string{header}, rows...) {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func cellValue(val string, header bool) interface{} {
	if header {
		return val
	}
	if n, err := strconv.ParseFloat(val, 64); err == nil {
		return n
	}
	return val
}
