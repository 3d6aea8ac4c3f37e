package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_RequiredColumns(t *testing.T) {
	var required []string
	for _, c := range Schema() {
		if c.Required {
			required = append(required, c.Key)
		}
	}

	assert.Equal(t, []string{
		ColProvince,
		ColOutletType,
		ColWastewaterVolume,
		ColCoolingWaterVolume,
	}, required)
}

func TestSchema_ReturnsCopy(t *testing.T) {
	cols := Schema()
	cols[0].Key = "changed"

	again := Schema()
	assert.Equal(t, ColProvince, again[0].Key)
}

func TestLookupColumn(t *testing.T) {
	c, ok := LookupColumn(ColWastewaterVolume)
	require.True(t, ok)
	assert.True(t, c.IsNumeric())
	assert.Equal(t, "number", c.Kind.String())

	c, ok = LookupColumn(ColProvince)
	require.True(t, ok)
	assert.False(t, c.IsNumeric())

	_, ok = LookupColumn("discharge_permit")
	assert.False(t, ok)
}

func TestDataset_ValueAccess(t *testing.T) {
	province, _ := LookupColumn(ColProvince)
	volume, _ := LookupColumn(ColWastewaterVolume)

	ds := NewDataset("outlets.xlsx", []Column{province, volume}, []Record{
		{Row: 2, Values: []Value{{Raw: "河南", Valid: true}, {Raw: "12.5", Number: 12.5, Valid: true}}},
		{Row: 3, Values: []Value{{Raw: "湖北", Valid: true}, {}}},
	})

	assert.Equal(t, 2, ds.Len())
	assert.True(t, ds.HasColumn(ColProvince))
	assert.False(t, ds.HasColumn(ColCity))

	idx, ok := ds.ColumnIndex(ColWastewaterVolume)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	assert.Equal(t, "河南", ds.Text(ds.Records[0], ColProvince))
	assert.Equal(t, 12.5, ds.Value(ds.Records[0], ColWastewaterVolume).Number)
	assert.True(t, ds.Value(ds.Records[1], ColWastewaterVolume).Missing())
	assert.True(t, ds.Value(ds.Records[0], ColCity).Missing())

	sub := ds.Subset(ds.Records[1:])
	assert.Equal(t, 1, sub.Len())
	assert.True(t, sub.HasColumn(ColWastewaterVolume))
}

func TestNewDataset_NilRecords(t *testing.T) {
	ds := NewDataset("empty.xlsx", Schema(), nil)

	assert.Equal(t, 0, ds.Len())
	assert.NotNil(t, ds.Records)
}

func TestCompletenessFor(t *testing.T) {
	tests := []struct {
		percent float64
		want    Completeness
	}{
		{0, CompletenessGood},
		{4.99, CompletenessGood},
		{5, CompletenessPartial},
		{49.9, CompletenessPartial},
		{50, CompletenessPoor},
		{100, CompletenessPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CompletenessFor(tt.percent), "percent %v", tt.percent)
	}
}

func TestGrouping_Totals(t *testing.T) {
	volume, _ := LookupColumn(ColWastewaterVolume)
	province, _ := LookupColumn(ColProvince)
	g := Grouping{
		Columns:    []Column{province},
		SumColumns: []Column{volume},
		Groups: []Group{
			{Key: []string{"A"}, Count: 2, Sums: []Sum{{Column: ColWastewaterVolume, Total: 3, Valid: 2}}},
			{Key: []string{"B"}, Count: 1, Sums: []Sum{{Column: ColWastewaterVolume, Total: 4, Valid: 1}}},
		},
	}

	assert.Equal(t, "province", g.Name())
	assert.Equal(t, 3, g.TotalCount())
	assert.Equal(t, []Sum{{Column: ColWastewaterVolume, Total: 7, Valid: 3}}, g.Totals())
	assert.Equal(t, "A", g.Groups[0].Label())
}
