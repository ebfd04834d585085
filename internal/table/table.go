// Package table holds the in-memory tabular model: immutable tables of
// named, homogeneous columns whose cells are tagged variants. Cells may hold
// whole sub-tables or vectors (list-columns), which is what nesting and
// unnesting operate on.
package table

import (
	"sort"
	"strings"
)

// Table is an ordered set of equal-length columns. A table with zero
// columns still carries a row count.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New builds a table from columns, which must have equal lengths and
// distinct names.
func New(cols ...*Column) (*Table, error) {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	return NewN(rows, cols...)
}

// NewN builds a table with an explicit row count; every column must have
// exactly rows values. Useful for tables without columns.
func NewN(rows int, cols ...*Column) (*Table, error) {
	t := &Table{cols: make([]*Column, 0, len(cols)), index: make(map[string]int, len(cols)), rows: rows}
	for _, c := range cols {
		if c.Len() != rows {
			names := []string{"(rows)", c.name}
			return nil, &LengthMismatchError{Row: -1, Columns: names, Lengths: []int{rows, c.Len()}}
		}
		if _, dup := t.index[c.name]; dup {
			return nil, &DuplicateColumnError{Name: c.name}
		}
		t.index[c.name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

func (t *Table) NumRows() int    { return t.rows }
func (t *Table) NumColumns() int { return len(t.cols) }

// Names returns column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}
	return out
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column or an *UnknownColumnError.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, &UnknownColumnError{Name: name, Available: t.Names()}
	}
	return t.cols[i], nil
}

// ColumnAt returns the column at position i.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// Columns returns the columns in order. The slice is a copy; columns are
// immutable and shared.
func (t *Table) Columns() []*Column { return append([]*Column(nil), t.cols...) }

// Schema describes the column layout.
func (t *Table) Schema() Schema {
	s := make(Schema, len(t.cols))
	for i, c := range t.cols {
		s[i] = Field{Name: c.name, Kind: c.kind}
	}
	return s
}

// Cell returns one value by column name and row.
func (t *Table) Cell(name string, row int) (Value, error) {
	c, err := t.Column(name)
	if err != nil {
		return Value{}, err
	}
	return c.values[row], nil
}

// Row returns the values of row i in column order.
func (t *Table) Row(i int) []Value {
	out := make([]Value, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.values[i]
	}
	return out
}

// Select returns a table with only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c, err := t.Column(n)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return NewN(t.rows, cols...)
}

// Drop returns a table without the named columns.
func (t *Table) Drop(names ...string) (*Table, error) {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		if !t.Has(n) {
			return nil, &UnknownColumnError{Name: n, Available: t.Names()}
		}
		skip[n] = true
	}
	cols := make([]*Column, 0, len(t.cols))
	for _, c := range t.cols {
		if !skip[c.name] {
			cols = append(cols, c)
		}
	}
	return NewN(t.rows, cols...)
}

// WithColumn returns a table with c appended, or replacing the column of
// the same name in place.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	rows := t.rows
	if len(t.cols) == 0 && rows == 0 {
		rows = c.Len()
	}
	cols := t.Columns()
	if i, ok := t.index[c.name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return NewN(rows, cols...)
}

// Take returns a table holding the given rows, in the given order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{cols: make([]*Column, len(t.cols)), index: make(map[string]int, len(t.cols)), rows: len(rows)}
	for i, c := range t.cols {
		out.cols[i] = c.take(rows)
		out.index[c.name] = i
	}
	return out
}

// Equal reports whether both tables have the same columns in the same
// order and equal cells row by row.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.rows != o.rows || len(t.cols) != len(o.cols) {
		return false
	}
	for i, c := range t.cols {
		oc := o.cols[i]
		if c.name != oc.name {
			return false
		}
		for r := range c.values {
			if !c.values[r].Equal(oc.values[r]) {
				return false
			}
		}
	}
	return true
}

// EqualUnordered reports whether both tables hold the same multiset of rows
// over the same set of column names, ignoring row and column order.
func (t *Table) EqualUnordered(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.rows != o.rows || len(t.cols) != len(o.cols) {
		return false
	}
	names := t.Names()
	sort.Strings(names)
	for _, n := range names {
		if !o.Has(n) {
			return false
		}
	}
	counts := make(map[string]int, t.rows)
	for r := 0; r < t.rows; r++ {
		counts[t.rowKey(r, names)]++
	}
	for r := 0; r < o.rows; r++ {
		k := o.rowKey(r, names)
		if counts[k] == 0 {
			return false
		}
		counts[k]--
	}
	return true
}

func (t *Table) rowKey(r int, names []string) string {
	var b strings.Builder
	for _, n := range names {
		b.WriteString(t.cols[t.index[n]].values[r].key())
		b.WriteByte('|')
	}
	return b.String()
}

func (t *Table) fingerprint() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.Names(), ","))
	b.WriteByte('#')
	names := t.Names()
	for r := 0; r < t.rows; r++ {
		b.WriteString(t.rowKey(r, names))
		b.WriteByte(';')
	}
	return b.String()
}

// RowKey encodes the given columns of row r into a string suitable for
// grouping: equal scalar tuples yield equal keys.
func (t *Table) RowKey(r int, names []string) string { return t.rowKey(r, names) }
