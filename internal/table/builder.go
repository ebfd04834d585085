package table

import "fmt"

// Builder accumulates rows and produces a Table with validated columns.
type Builder struct {
	names []string
	cells [][]Value // per column
	rows  int
}

// NewBuilder starts a table with the given column names.
func NewBuilder(names ...string) *Builder {
	return &Builder{names: append([]string(nil), names...), cells: make([][]Value, len(names))}
}

// Append adds one row; it must have one value per column.
func (b *Builder) Append(vals ...Value) error {
	if len(vals) != len(b.names) {
		return fmt.Errorf("append row %d: got %d values for %d columns", b.rows, len(vals), len(b.names))
	}
	for i, v := range vals {
		b.cells[i] = append(b.cells[i], v)
	}
	b.rows++
	return nil
}

// Rows is the number of rows appended so far.
func (b *Builder) Rows() int { return b.rows }

// Build validates every column and returns the table.
func (b *Builder) Build() (*Table, error) {
	cols := make([]*Column, len(b.names))
	for i, n := range b.names {
		vals := b.cells[i]
		if vals == nil {
			vals = []Value{}
		}
		c, err := NewColumn(n, vals)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return NewN(b.rows, cols...)
}
