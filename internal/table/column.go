package table

import "strings"

// Field is a named, kinded column slot in a Schema.
type Field struct {
	Name string
	Kind Kind
}

// Schema is the ordered column layout of a table.
type Schema []Field

func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.Name + " " + f.Kind.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Names returns the field names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

// Compatible reports whether two schemas have the same names in the same
// order and pairwise compatible kinds (equal, or one side null).
func (s Schema) Compatible(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i].Name != o[i].Name || !compatible(s[i].Kind, o[i].Kind) {
			return false
		}
	}
	return true
}

// merge fills null kinds in s from o. Both must be compatible.
func (s Schema) merge(o Schema) Schema {
	out := append(Schema(nil), s...)
	for i := range out {
		if out[i].Kind == KindNull {
			out[i].Kind = o[i].Kind
		}
	}
	return out
}

// Column is a named, homogeneous sequence of values. Columns are immutable.
type Column struct {
	name   string
	kind   Kind
	values []Value
	// schema is the common sub-table schema when kind is KindTable.
	schema Schema
}

// NewColumn validates that all non-null values share one kind and, for
// sub-table columns, that all sub-tables have compatible schemas. The kind
// is taken from the first non-null value.
func NewColumn(name string, values []Value) (*Column, error) {
	return buildColumn(name, KindNull, nil, values)
}

// NewColumnOf is NewColumn with a declared kind, so that an empty or
// all-null column still carries its kind.
func NewColumnOf(name string, kind Kind, values []Value) (*Column, error) {
	return buildColumn(name, kind, nil, values)
}

// NewTableColumn declares a sub-table column with a known schema; every
// non-null sub-table must be compatible with it.
func NewTableColumn(name string, schema Schema, values []Value) (*Column, error) {
	return buildColumn(name, KindTable, schema, values)
}

func buildColumn(name string, kind Kind, schema Schema, values []Value) (*Column, error) {
	c := &Column{name: name, kind: kind, values: append([]Value(nil), values...)}
	if schema != nil {
		c.schema = append(Schema(nil), schema...)
	}
	seen := schema != nil
	for i, v := range c.values {
		if v.kind == KindNull {
			continue
		}
		if c.kind == KindNull {
			c.kind = v.kind
		} else if v.kind != c.kind {
			return nil, &KindMismatchError{Column: name, Row: i, Want: c.kind, Got: v.kind}
		}
		if v.kind != KindTable {
			continue
		}
		sch := v.tbl.Schema()
		if !seen {
			c.schema = sch
			seen = true
			continue
		}
		if !c.schema.Compatible(sch) {
			return nil, &SchemaMismatchError{Column: name, Row: i, Want: c.schema, Got: sch}
		}
		c.schema = c.schema.merge(sch)
	}
	return c, nil
}

// NumberColumn builds a number column; NaN entries become null.
func NumberColumn(name string, fs ...float64) *Column {
	vals := make([]Value, len(fs))
	for i, f := range fs {
		if f != f {
			continue
		}
		vals[i] = Number(f)
	}
	return &Column{name: name, kind: KindNumber, values: vals}
}

// StringColumn builds a string column.
func StringColumn(name string, ss ...string) *Column {
	vals := make([]Value, len(ss))
	for i, s := range ss {
		vals[i] = String(s)
	}
	return &Column{name: name, kind: KindString, values: vals}
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) Len() int     { return len(c.values) }

// Value returns the cell at row i.
func (c *Column) Value(i int) Value { return c.values[i] }

// Values returns a copy of all cells.
func (c *Column) Values() []Value { return append([]Value(nil), c.values...) }

// SubSchema is the shared schema of a sub-table column, nil otherwise.
func (c *Column) SubSchema() Schema { return append(Schema(nil), c.schema...) }

// Floats returns numeric cells with ok=false for nulls.
func (c *Column) Floats() (vals []float64, ok []bool) {
	vals = make([]float64, len(c.values))
	ok = make([]bool, len(c.values))
	for i, v := range c.values {
		vals[i], ok[i] = v.Float()
	}
	return vals, ok
}

// Rename returns a copy of the column under a new name.
func (c *Column) Rename(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

func (c *Column) take(rows []int) *Column {
	vals := make([]Value, len(rows))
	for i, r := range rows {
		vals[i] = c.values[r]
	}
	return &Column{name: c.name, kind: c.kind, values: vals, schema: c.schema}
}
