package dataprocessing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// valueKind distinguishes the scalar kinds a cell can hold
type valueKind int

const (
	kindMissing valueKind = iota
	kindText
	kindNumber
	kindLink
)

// Value is a single cell: text, an exact number, a hyperlink, or missing.
// The zero Value is missing.
type Value struct {
	kind valueKind
	text string
	num  decimal.Decimal
	link Link
}

// Missing returns the missing value
func Missing() Value {
	return Value{}
}

// Text returns a text value. Empty text is treated as missing, matching how
// blank cells are read from both CSV and workbook sources.
func Text(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{kind: kindText, text: s}
}

// Number returns a numeric value
func Number(d decimal.Decimal) Value {
	return Value{kind: kindNumber, num: d}
}

// LinkValue returns a hyperlink value
func LinkValue(l Link) Value {
	return Value{kind: kindLink, link: l}
}

// IsMissing reports whether the cell holds no value
func (v Value) IsMissing() bool {
	return v.kind == kindMissing
}

// IsNumber reports whether the cell holds a number
func (v Value) IsNumber() bool {
	return v.kind == kindNumber
}

// IsLink reports whether the cell holds a hyperlink
func (v Value) IsLink() bool {
	return v.kind == kindLink
}

// Decimal returns the numeric value and whether the cell is numeric
func (v Value) Decimal() (decimal.Decimal, bool) {
	return v.num, v.kind == kindNumber
}

// Link returns the hyperlink and whether the cell is a link
func (v Value) Link() (Link, bool) {
	return v.link, v.kind == kindLink
}

// String renders the value as text. Missing renders as the empty string and
// links render as their escaped HYPERLINK formula.
func (v Value) String() string {
	switch v.kind {
	case kindText:
		return v.text
	case kindNumber:
		return v.num.String()
	case kindLink:
		return v.link.Formula()
	default:
		return ""
	}
}

// Row is one record of a Table. Cells are addressed by column name through
// the owning table's column index.
type Row struct {
	index map[string]int
	cells []Value
}

// Get returns the value of the named column and whether the column exists
func (r Row) Get(column string) (Value, bool) {
	i, ok := r.index[column]
	if !ok {
		return Value{}, false
	}
	if i >= len(r.cells) {
		return Value{}, true
	}
	return r.cells[i], true
}

// Value returns the value of the named column, missing if the column is absent
func (r Row) Value(column string) Value {
	v, _ := r.Get(column)
	return v
}

// Table is an ordered sequence of rows sharing one column set. Column order is
// insertion order; tables are never modified in place by pipeline stages.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// NewTable creates an empty table with the given column names. Column names
// must be unique.
func NewTable(columns []string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols, index: index}, nil
}

// MustNewTable is like NewTable but panics on duplicate columns.
// Intended for fixed column sets and tests.
func MustNewTable(columns ...string) *Table {
	t, err := NewTable(columns)
	if err != nil {
		panic(err)
	}
	return t
}

// Append adds a row. Missing trailing cells are padded; extra cells are an error.
func (t *Table) Append(cells ...Value) error {
	if len(cells) > len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.columns))
	}
	row := make([]Value, len(t.columns))
	copy(row, cells)
	t.rows = append(t.rows, Row{index: t.index, cells: row})
	return nil
}

// Columns returns a copy of the column names in order
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// HasColumn reports whether the named column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns the rows in order. The slice must not be modified.
func (t *Table) Rows() []Row {
	return t.rows
}

// Where returns a new table holding the rows for which keep returns true,
// in source order.
func (t *Table) Where(keep func(Row) bool) *Table {
	out := &Table{columns: t.columns, index: t.index}
	for _, r := range t.rows {
		if keep(r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// WithColumn returns a new table where the named column holds fn(row) for
// every row. An existing column is overwritten in place in the column order;
// a new column is appended. The receiver is left untouched.
func (t *Table) WithColumn(name string, fn func(Row) Value) *Table {
	columns := t.columns
	index := t.index
	pos, exists := t.index[name]
	if !exists {
		columns = make([]string, len(t.columns), len(t.columns)+1)
		copy(columns, t.columns)
		columns = append(columns, name)
		index = make(map[string]int, len(columns))
		for i, c := range columns {
			index[c] = i
		}
		pos = len(columns) - 1
	}

	out := &Table{columns: columns, index: index, rows: make([]Row, len(t.rows))}
	for i, r := range t.rows {
		cells := make([]Value, len(columns))
		copy(cells, r.cells)
		cells[pos] = fn(r)
		out.rows[i] = Row{index: index, cells: cells}
	}
	return out
}
