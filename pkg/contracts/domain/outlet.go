package domain

// ColumnKind tells how the cells of a column are interpreted.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumber
)

// String returns the string representation of the kind
func (k ColumnKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	default:
		return "unknown"
	}
}

// Column keys of the outlet schema.
const (
	ColProvince           = "province"
	ColCity               = "city"
	ColCounty             = "county"
	ColOutletName         = "outlet_name"
	ColUnitName           = "unit_name"
	ColOutletType         = "outlet_type"
	ColDischargeFeature   = "discharge_feature"
	ColEntryMethod        = "entry_method"
	ColLongitude          = "longitude"
	ColLatitude           = "latitude"
	ColWastewaterVolume   = "wastewater_volume"
	ColCoolingWaterVolume = "cooling_water_volume"

	// Water quality monitoring, sparsely filled in the survey workbook.
	ColCOD             = "cod"
	ColAmmoniaNitrogen = "ammonia_nitrogen"
	ColTotalPhosphorus = "total_phosphorus"
	ColPH              = "ph"
	ColFlow            = "flow"
)

// WaterQualityColumns lists the water quality keys in schema order.
var WaterQualityColumns = []string{ColCOD, ColAmmoniaNitrogen, ColTotalPhosphorus, ColPH, ColFlow}

// Column describes one fixed column of the outlet spreadsheet.
type Column struct {
	Key      string     `json:"key" yaml:"key"`
	Header   string     `json:"header" yaml:"header"`
	Aliases  []string   `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Kind     ColumnKind `json:"kind" yaml:"kind"`
	Required bool       `json:"required" yaml:"required"`
}

// IsNumeric reports whether the column holds numbers
func (c Column) IsNumeric() bool {
	return c.Kind == KindNumber
}

// outletSchema is the ordered column set of the discharge outlet register.
// Headers follow the regional survey workbook.
var outletSchema = []Column{
	{Key: ColProvince, Header: "省", Aliases: []string{"省份"}, Kind: KindText, Required: true},
	{Key: ColCity, Header: "市", Kind: KindText},
	{Key: ColCounty, Header: "县", Aliases: []string{"县(区)"}, Kind: KindText},
	{Key: ColOutletName, Header: "排污口名称", Kind: KindText},
	{Key: ColUnitName, Header: "设置单位名称", Aliases: []string{"设置单位"}, Kind: KindText},
	{Key: ColOutletType, Header: "排污口类型", Aliases: []string{"排污口类型名称"}, Kind: KindText, Required: true},
	{Key: ColDischargeFeature, Header: "排水特征-主要特征", Kind: KindText},
	{Key: ColEntryMethod, Header: "入河方式", Kind: KindText},
	{Key: ColLongitude, Header: "地理位置经度", Aliases: []string{"经度"}, Kind: KindNumber},
	{Key: ColLatitude, Header: "地理位置纬度", Aliases: []string{"纬度"}, Kind: KindNumber},
	{Key: ColWastewaterVolume, Header: "入河废污水量(万吨年)", Aliases: []string{"入河废污水量"}, Kind: KindNumber, Required: true},
	{Key: ColCoolingWaterVolume, Header: "冷却水排放量(万吨年)", Aliases: []string{"冷却水排放量"}, Kind: KindNumber, Required: true},
	{Key: ColCOD, Header: "COD(mg/L)", Aliases: []string{"COD"}, Kind: KindNumber},
	{Key: ColAmmoniaNitrogen, Header: "氨氮(mg/L)", Aliases: []string{"氨氮"}, Kind: KindNumber},
	{Key: ColTotalPhosphorus, Header: "总磷(mg/L)", Aliases: []string{"总磷"}, Kind: KindNumber},
	{Key: ColPH, Header: "pH", Kind: KindNumber},
	{Key: ColFlow, Header: "流量(m3/d)", Aliases: []string{"流量"}, Kind: KindNumber},
}

// Schema returns a copy of the outlet schema in column order.
func Schema() []Column {
	cols := make([]Column, len(outletSchema))
	copy(cols, outletSchema)
	return cols
}

// LookupColumn finds a schema column by key.
func LookupColumn(key string) (Column, bool) {
	for _, c := range outletSchema {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// Value is a single spreadsheet cell after interpretation.
// For text columns Valid means the trimmed cell is not empty; for number
// columns it means the cell parsed as a finite number.
type Value struct {
	Raw    string  `json:"raw"`
	Number float64 `json:"number,omitempty"`
	Valid  bool    `json:"valid"`
}

// Missing reports whether the cell counts as a missing value
func (v Value) Missing() bool {
	return !v.Valid
}

// Record is one discharge outlet row. Values line up with Dataset.Columns.
type Record struct {
	Row    int     `json:"row"`
	Values []Value `json:"values"`
}

// Dataset is the loaded spreadsheet: schema columns found in the file and
// the outlet records in file order. It is read-only once built.
type Dataset struct {
	Source  string   `json:"source"`
	Columns []Column `json:"columns"`
	Records []Record `json:"records"`

	index map[string]int
}

// NewDataset creates a dataset over the given columns and records.
func NewDataset(source string, columns []Column, records []Record) *Dataset {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c.Key] = i
	}
	if records == nil {
		records = []Record{}
	}
	return &Dataset{
		Source:  source,
		Columns: columns,
		Records: records,
		index:   index,
	}
}

// Len returns the number of records
func (d *Dataset) Len() int {
	return len(d.Records)
}

// ColumnIndex returns the position of the column with the given key.
func (d *Dataset) ColumnIndex(key string) (int, bool) {
	i, ok := d.index[key]
	return i, ok
}

// HasColumn reports whether the dataset carries the column
func (d *Dataset) HasColumn(key string) bool {
	_, ok := d.index[key]
	return ok
}

// Column returns the column definition for key.
func (d *Dataset) Column(key string) (Column, bool) {
	i, ok := d.index[key]
	if !ok {
		return Column{}, false
	}
	return d.Columns[i], true
}

// Value returns the cell of rec in the column key. The zero Value (missing)
// is returned when the dataset has no such column.
func (d *Dataset) Value(rec Record, key string) Value {
	i, ok := d.index[key]
	if !ok || i >= len(rec.Values) {
		return Value{}
	}
	return rec.Values[i]
}

// Text returns the trimmed text of rec in column key.
func (d *Dataset) Text(rec Record, key string) string {
	return d.Value(rec, key).Raw
}

// Subset returns a dataset sharing the columns of d with only the given records.
func (d *Dataset) Subset(records []Record) *Dataset {
	return NewDataset(d.Source, d.Columns, records)
}
