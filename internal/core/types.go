// Package core provides the consistency and duplicate-resolution engine for
// tabular datasets. This package has no file or network dependencies and
// can be used by the pipeline, the HTTP layer, or tests without modification.
package core

import (
	"strconv"
	"strings"
	"time"
)

// FieldType represents the expected data type for a dataset column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
	FieldBool
)

// String returns a human-readable name for a field type.
func (ft FieldType) String() string {
	switch ft {
	case FieldText:
		return "text"
	case FieldEnum:
		return "enum"
	case FieldDate:
		return "date"
	case FieldNumeric:
		return "numeric"
	case FieldBool:
		return "bool"
	default:
		return "value"
	}
}

// Column is a named, typed dataset column.
type Column struct {
	Name string
	Type FieldType
}

// ValueKind tags the dynamic type held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindDate
	KindBool
)

// Value is a single typed cell. The zero Value is null.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Time time.Time
	Bool bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Text returns a string value.
func Text(s string) Value { return Value{Kind: KindString, Str: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Date returns a date/time value.
func Date(t time.Time) Value { return Value{Kind: KindDate, Time: t} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal reports whether v and o hold the same kind and content.
// Two nulls are equal, matching how duplicate detection treats missing cells.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.Str == o.Str
	case KindNumber:
		return v.Num == o.Num
	case KindDate:
		return v.Time.Equal(o.Time)
	case KindBool:
		return v.Bool == o.Bool
	}
	return false
}

// Compare orders two non-null values of the same kind.
// ok is false when either side is null or the kinds differ.
func (v Value) Compare(o Value) (cmp int, ok bool) {
	if v.Kind != o.Kind || v.Kind == KindNull {
		return 0, false
	}
	switch v.Kind {
	case KindString:
		return strings.Compare(v.Str, o.Str), true
	case KindNumber:
		switch {
		case v.Num < o.Num:
			return -1, true
		case v.Num > o.Num:
			return 1, true
		}
		return 0, true
	case KindDate:
		return v.Time.Compare(o.Time), true
	case KindBool:
		switch {
		case v.Bool == o.Bool:
			return 0, true
		case !v.Bool:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// String formats the value the way it is written back to CSV.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindDate:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 && v.Time.Nanosecond() == 0 {
			return v.Time.Format("2006-01-02")
		}
		return v.Time.Format("2006-01-02 15:04:05")
	case KindBool:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}

// key is a kind-tagged encoding used for hashing rows.
func (v Value) key() string {
	return strconv.Itoa(int(v.Kind)) + ":" + v.String()
}

// Row maps column names to values. A missing key reads as null.
type Row map[string]Value

// Get returns the value for col, or null when absent.
func (r Row) Get(col string) Value {
	return r[col]
}

// Clone returns a shallow copy of the row. Values are immutable so this is
// a full copy for practical purposes.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Dataset is an ordered sequence of rows with named, typed columns.
type Dataset struct {
	Name    string
	Columns []Column
	Rows    []Row
}

// NewDataset creates an empty dataset with the given columns.
func NewDataset(name string, columns []Column) *Dataset {
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Dataset{Name: name, Columns: cols}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Append adds a row at the end of the dataset.
func (d *Dataset) Append(row Row) {
	d.Rows = append(d.Rows, row)
}

// ColumnNames returns the column names in dataset order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column named name.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the dataset declares a column named name.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.Column(name)
	return ok
}

// MissingColumns returns the subset of names the dataset does not declare,
// in the order given.
func (d *Dataset) MissingColumns(names ...string) []string {
	var missing []string
	for _, n := range names {
		if n != "" && !d.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// SetColumnType updates the declared type of an existing column.
func (d *Dataset) SetColumnType(name string, t FieldType) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			d.Columns[i].Type = t
			return
		}
	}
}

// EnsureColumn appends a column if the dataset does not already declare it.
func (d *Dataset) EnsureColumn(name string, t FieldType) {
	if d.HasColumn(name) {
		d.SetColumnType(name, t)
		return
	}
	d.Columns = append(d.Columns, Column{Name: name, Type: t})
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	out := NewDataset(d.Name, d.Columns)
	out.Rows = make([]Row, len(d.Rows))
	for i, r := range d.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// rowKey encodes the values of cols for row i. An empty cols slice encodes
// every declared column.
func (d *Dataset) rowKey(i int, cols []string) string {
	if len(cols) == 0 {
		cols = d.ColumnNames()
	}
	var b strings.Builder
	row := d.Rows[i]
	for j, c := range cols {
		if j > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(row.Get(c).key())
	}
	return b.String()
}
