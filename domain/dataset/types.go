package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"medstat/domain/core"
)

// ColumnType is the declared kind of a column, as reported by the stats API
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeCategorical ColumnType = "categorical"
	TypeText        ColumnType = "text"
)

// categoricalMaxUnique is the unique-value ceiling for a non-numeric column to count as categorical
const categoricalMaxUnique = 30

// sampleValueCount is the number of non-empty sample values kept per column
const sampleValueCount = 5

// Source records where a dataset came from
type Source string

const (
	SourceUpload Source = "upload"
	SourceREDCap Source = "redcap"
	SourceFile   Source = "file"
	SourceManual Source = "manual"
)

// Column describes a single column in the dataset
type Column struct {
	Name         string     `json:"name"`
	Type         ColumnType `json:"col_type"`
	DType        string     `json:"dtype,omitempty"`
	Missing      int        `json:"n_missing"`
	Unique       int        `json:"n_unique"`
	SampleValues []string   `json:"sample_values,omitempty"`
}

// IsNumeric reports whether the column was detected as numeric
func (c Column) IsNumeric() bool {
	return c.Type == TypeNumeric
}

// Record maps a column name to its scalar value. Empty string means missing.
type Record map[string]string

// Dataset is tabular data produced by upload, REDCap fetch, local file or manual entry
type Dataset struct {
	Name    string   `json:"name,omitempty"`
	Source  Source   `json:"source,omitempty"`
	Columns []Column `json:"columns"`
	Rows    []Record `json:"rows"`
}

// New builds a dataset from a header row and string rows, detecting column types.
// Short rows are padded with empty values and extra cells are dropped.
func New(name string, source Source, headers []string, rows [][]string) (*Dataset, error) {
	columns := make([]Column, len(headers))
	seen := make(map[string]bool, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		if seen[h] {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateColumn, h)
		}
		seen[h] = true
		columns[i] = Column{Name: h}
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(columns))
		for j, col := range columns {
			if j < len(row) {
				rec[col.Name] = strings.TrimSpace(row[j])
			} else {
				rec[col.Name] = ""
			}
		}
		records = append(records, rec)
	}

	ds := &Dataset{Name: name, Source: source, Columns: columns, Rows: records}
	ds.Describe()
	return ds, nil
}

// RowCount returns the number of records
func (d *Dataset) RowCount() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// ColumnCount returns the number of declared columns
func (d *Dataset) ColumnCount() int {
	if d == nil {
		return 0
	}
	return len(d.Columns)
}

// ColumnNames returns the column names in dataset order
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name
func (d *Dataset) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Value returns the cell value at a 0-based row index
func (d *Dataset) Value(row int, column string) string {
	if row < 0 || row >= len(d.Rows) {
		return ""
	}
	return d.Rows[row][column]
}

// Float parses the cell value as a number
func (d *Dataset) Float(row int, column string) (float64, bool) {
	return ParseNumber(d.Value(row, column))
}

// Validate checks the dataset invariants: unique column names and a value for every
// declared column in every record.
func (d *Dataset) Validate() error {
	seen := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if seen[c.Name] {
			return fmt.Errorf("%w: %s", core.ErrDuplicateColumn, c.Name)
		}
		seen[c.Name] = true
	}
	for i, rec := range d.Rows {
		for _, c := range d.Columns {
			if _, ok := rec[c.Name]; !ok {
				return fmt.Errorf("row %d has no value for column %q", i+1, c.Name)
			}
		}
	}
	return nil
}

// Normalize fills absent cells with the empty value so Validate holds
func (d *Dataset) Normalize() {
	for _, rec := range d.Rows {
		for _, c := range d.Columns {
			if _, ok := rec[c.Name]; !ok {
				rec[c.Name] = ""
			}
		}
	}
}

// Describe recomputes per-column metadata (type, missing, unique, samples) from the rows
func (d *Dataset) Describe() {
	for i := range d.Columns {
		name := d.Columns[i].Name
		values := make([]string, len(d.Rows))
		for r, rec := range d.Rows {
			values[r] = rec[name]
		}
		d.Columns[i] = describeColumn(name, values)
	}
}

func describeColumn(name string, values []string) Column {
	col := Column{Name: name}
	unique := make(map[string]struct{})
	for _, v := range values {
		if v == "" {
			col.Missing++
			continue
		}
		if _, ok := unique[v]; !ok && len(col.SampleValues) < sampleValueCount {
			col.SampleValues = append(col.SampleValues, v)
		}
		unique[v] = struct{}{}
	}
	col.Unique = len(unique)
	col.Type = DetectType(values)
	if col.Type == TypeNumeric {
		col.DType = "float64"
	} else {
		col.DType = "object"
	}
	return col
}

// DetectType classifies a column: numeric when every non-empty value parses as a number,
// otherwise categorical up to 30 unique values and text beyond that.
func DetectType(values []string) ColumnType {
	unique := make(map[string]struct{})
	numeric := true
	nonEmpty := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		nonEmpty++
		unique[v] = struct{}{}
		if _, ok := ParseNumber(v); !ok {
			numeric = false
		}
	}
	if numeric && nonEmpty > 0 {
		return TypeNumeric
	}
	if len(unique) <= categoricalMaxUnique {
		return TypeCategorical
	}
	return TypeText
}

// ParseNumber parses a trimmed numeric cell. NaN and infinities are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != f || f > 1e308 || f < -1e308 {
		return 0, false
	}
	return f, true
}

// MarshalJSON emits the dataset with its row and column counts
func (d Dataset) MarshalJSON() ([]byte, error) {
	type alias Dataset
	return json.Marshal(struct {
		RowCount    int `json:"row_count"`
		ColumnCount int `json:"column_count"`
		alias
	}{
		RowCount:    len(d.Rows),
		ColumnCount: len(d.Columns),
		alias:       alias(d),
	})
}
