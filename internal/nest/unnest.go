package nest

import (
	"fmt"

	"github.com/KaramelBytes/nestloom-cli/internal/table"
)

// UnnestOptions controls how list-columns are flattened.
type UnnestOptions struct {
	// DropExtra drops list-columns and model handle columns that are not
	// being unnested; otherwise they are replicated like scalar columns.
	DropExtra bool
	// KeepEmpty keeps rows whose unnested cells are all null or empty as a
	// single row of nulls instead of dropping them.
	KeepEmpty bool
	// NameSep, when set, names sub-table columns "<column><sep><field>".
	NameSep string
}

type outSource int

const (
	srcReplicate outSource = iota
	srcField
	srcVector
)

type outCol struct {
	name   string
	src    outSource
	in     *table.Column
	field  int
	kind   table.Kind
	schema table.Schema
}

// Unnest expands the named list-columns of t into rows. Every expanded
// sub-table or vector in one row must have the same length; null cells are
// ignored when comparing lengths and fill with nulls. Other columns are
// replicated once per produced row.
func Unnest(t *table.Table, cols []string, opt UnnestOptions) (*table.Table, error) {
	expand := make(map[string]bool, len(cols))
	for _, name := range cols {
		c, err := t.Column(name)
		if err != nil {
			return nil, fmt.Errorf("unnest: %w", err)
		}
		if expand[name] {
			return nil, fmt.Errorf("unnest: %w", &table.DuplicateColumnError{Name: name})
		}
		if k := c.Kind(); !k.IsList() && k != table.KindNull {
			return nil, fmt.Errorf("unnest: %w", &table.KindMismatchError{Column: name, Row: -1, Want: table.KindTable, Got: k})
		}
		expand[name] = true
	}

	var plan []outCol
	var expanded []*table.Column
	for _, c := range t.Columns() {
		switch {
		case expand[c.Name()] && c.Kind() == table.KindTable:
			expanded = append(expanded, c)
			for i, f := range c.SubSchema() {
				name := f.Name
				if opt.NameSep != "" {
					name = c.Name() + opt.NameSep + f.Name
				}
				plan = append(plan, outCol{name: name, src: srcField, in: c, field: i, kind: f.Kind})
			}
		case expand[c.Name()]:
			expanded = append(expanded, c)
			plan = append(plan, outCol{name: c.Name(), src: srcVector, in: c})
		case opt.DropExtra && (c.Kind().IsList() || c.Kind() == table.KindHandle):
			// dropped
		default:
			plan = append(plan, outCol{name: c.Name(), src: srcReplicate, in: c, kind: c.Kind(), schema: c.SubSchema()})
		}
	}
	names := make(map[string]bool, len(plan))
	for _, p := range plan {
		if names[p.name] {
			return nil, fmt.Errorf("unnest: %w", &table.DuplicateColumnError{Name: p.name})
		}
		names[p.name] = true
	}

	cells := make([][]table.Value, len(plan))
	total := 0
	for r := 0; r < t.NumRows(); r++ {
		n, err := rowLength(r, expanded)
		if err != nil {
			return nil, fmt.Errorf("unnest: %w", err)
		}
		emit := n
		if n == 0 && opt.KeepEmpty {
			emit = 1
		}
		for i := 0; i < emit; i++ {
			for j, p := range plan {
				cells[j] = append(cells[j], cellFor(p, r, i))
			}
		}
		total += emit
	}

	out := make([]*table.Column, len(plan))
	for j, p := range plan {
		var (
			c   *table.Column
			err error
		)
		switch {
		case p.src == srcVector:
			c, err = table.NewColumn(p.name, cells[j])
		case p.kind == table.KindTable:
			c, err = table.NewTableColumn(p.name, p.schema, cells[j])
		default:
			c, err = table.NewColumnOf(p.name, p.kind, cells[j])
		}
		if err != nil {
			return nil, fmt.Errorf("unnest: %w", err)
		}
		out[j] = c
	}
	res, err := table.NewN(total, out...)
	if err != nil {
		return nil, fmt.Errorf("unnest: %w", err)
	}
	return res, nil
}

// rowLength returns the common length of the non-null expanded cells in
// row r, or a LengthMismatchError.
func rowLength(r int, expanded []*table.Column) (int, error) {
	n := -1
	mismatch := false
	for _, c := range expanded {
		v := c.Value(r)
		if v.IsNull() {
			continue
		}
		if n == -1 {
			n = v.Len()
		} else if v.Len() != n {
			mismatch = true
		}
	}
	if mismatch {
		e := &table.LengthMismatchError{Row: r}
		for _, c := range expanded {
			e.Columns = append(e.Columns, c.Name())
			e.Lengths = append(e.Lengths, c.Value(r).Len())
		}
		return 0, e
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

func cellFor(p outCol, r, i int) table.Value {
	v := p.in.Value(r)
	switch p.src {
	case srcReplicate:
		return v
	case srcField:
		sub := v.Table()
		if sub == nil || i >= sub.NumRows() {
			return table.Null()
		}
		return sub.ColumnAt(p.field).Value(i)
	default:
		return v.Index(i)
	}
}
