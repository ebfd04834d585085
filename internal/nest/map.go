package nest

import (
	"fmt"

	"github.com/KaramelBytes/nestloom-cli/internal/table"
	"github.com/sourcegraph/conc/iter"
)

// MapError reports the first row whose mapping function failed.
type MapError struct {
	Column string
	Row    int
	Err    error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("map into %q: row %d: %v", e.Column, e.Row, e.Err)
}

func (e *MapError) Unwrap() error { return e.Err }

type mapOptions struct {
	workers int
}

// Option configures Map and friends.
type Option func(*mapOptions)

// WithWorkers evaluates rows on up to n goroutines. n <= 1 maps
// sequentially. Output alignment with input rows is kept either way.
func WithWorkers(n int) Option {
	return func(o *mapOptions) { o.workers = n }
}

// Map applies fn to every cell of src and stores the results in dst.
func Map(t *table.Table, src, dst string, fn func(table.Value) (table.Value, error), opts ...Option) (*table.Table, error) {
	return MapN(t, []string{src}, dst, func(args []table.Value) (table.Value, error) {
		return fn(args[0])
	}, opts...)
}

// Map2 applies fn to the aligned cells of two columns, e.g. a model handle
// and the data it was fitted on.
func Map2(t *table.Table, a, b, dst string, fn func(x, y table.Value) (table.Value, error), opts ...Option) (*table.Table, error) {
	return MapN(t, []string{a, b}, dst, func(args []table.Value) (table.Value, error) {
		return fn(args[0], args[1])
	}, opts...)
}

// MapTable applies fn to each sub-table of a nested column. Null cells map
// to null without calling fn.
func MapTable(t *table.Table, src, dst string, fn func(*table.Table) (table.Value, error), opts ...Option) (*table.Table, error) {
	c, err := t.Column(src)
	if err != nil {
		return nil, fmt.Errorf("map: %w", err)
	}
	if c.Kind() != table.KindTable && c.Kind() != table.KindNull {
		return nil, fmt.Errorf("map: %w", &table.KindMismatchError{Column: src, Row: -1, Want: table.KindTable, Got: c.Kind()})
	}
	return Map(t, src, dst, func(v table.Value) (table.Value, error) {
		if v.IsNull() {
			return table.Null(), nil
		}
		return fn(v.Table())
	}, opts...)
}

// MapN applies fn to the aligned cells of srcs row by row and returns t
// with dst added (or replaced). fn must not retain or mutate its argument
// slice. The row count and order are preserved.
func MapN(t *table.Table, srcs []string, dst string, fn func([]table.Value) (table.Value, error), opts ...Option) (*table.Table, error) {
	var o mapOptions
	for _, opt := range opts {
		opt(&o)
	}
	cols := make([]*table.Column, len(srcs))
	for i, s := range srcs {
		c, err := t.Column(s)
		if err != nil {
			return nil, fmt.Errorf("map: %w", err)
		}
		cols[i] = c
	}

	type result struct {
		v   table.Value
		err error
	}
	apply := func(r int) result {
		args := make([]table.Value, len(cols))
		for j, c := range cols {
			args[j] = c.Value(r)
		}
		v, err := fn(args)
		return result{v: v, err: err}
	}

	rows := make([]int, t.NumRows())
	for i := range rows {
		rows[i] = i
	}
	var results []result
	if o.workers <= 1 {
		results = make([]result, len(rows))
		for _, r := range rows {
			results[r] = apply(r)
			if results[r].err != nil {
				break
			}
		}
	} else {
		mapper := iter.Mapper[int, result]{MaxGoroutines: o.workers}
		results = mapper.Map(rows, func(r *int) result { return apply(*r) })
	}

	vals := make([]table.Value, len(results))
	for i, res := range results {
		if res.err != nil {
			return nil, &MapError{Column: dst, Row: i, Err: res.err}
		}
		vals[i] = res.v
	}
	col, err := table.NewColumn(dst, vals)
	if err != nil {
		return nil, fmt.Errorf("map into %q: %w", dst, err)
	}
	out, err := t.WithColumn(col)
	if err != nil {
		return nil, fmt.Errorf("map into %q: %w", dst, err)
	}
	return out, nil
}
