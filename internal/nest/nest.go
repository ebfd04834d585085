// Package nest implements the group / apply / recombine pattern over
// tables: Nest partitions rows into one sub-table per key tuple, Map derives
// one value per row (typically one model per group), and Unnest flattens
// list-columns back into rows.
package nest

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/nestloom-cli/internal/table"
)

// DefaultColumn is the name of the list-column created by Nest.
const DefaultColumn = "data"

// ErrListKey indicates a group key column holding list or handle cells.
var ErrListKey = errors.New("group key columns must hold scalar values")

// Nest groups t by the key columns into a table with one row per distinct
// key tuple and a "data" column holding each group's remaining columns.
func Nest(t *table.Table, keys ...string) (*table.Table, error) {
	return NestInto(t, DefaultColumn, keys...)
}

// NestInto is Nest with a caller-chosen name for the list-column. Groups
// appear in order of first occurrence; rows keep their relative order
// inside each sub-table. With no keys the result is a single row holding
// the whole table.
func NestInto(t *table.Table, into string, keys ...string) (*table.Table, error) {
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		c, err := t.Column(k)
		if err != nil {
			return nil, fmt.Errorf("nest: %w", err)
		}
		if seen[k] {
			return nil, fmt.Errorf("nest: %w", &table.DuplicateColumnError{Name: k})
		}
		seen[k] = true
		if !c.Kind().IsScalar() {
			return nil, fmt.Errorf("nest: column %q (%s): %w", k, c.Kind(), ErrListKey)
		}
	}
	if seen[into] {
		return nil, fmt.Errorf("nest: %w", &table.DuplicateColumnError{Name: into})
	}

	rest, err := t.Drop(keys...)
	if err != nil {
		return nil, fmt.Errorf("nest: %w", err)
	}

	var groups [][]int
	if len(keys) == 0 {
		all := make([]int, t.NumRows())
		for i := range all {
			all[i] = i
		}
		groups = [][]int{all}
	} else {
		byKey := make(map[string]int)
		for r := 0; r < t.NumRows(); r++ {
			k := t.RowKey(r, keys)
			gi, ok := byKey[k]
			if !ok {
				gi = len(groups)
				byKey[k] = gi
				groups = append(groups, nil)
			}
			groups[gi] = append(groups[gi], r)
		}
	}

	firsts := make([]int, len(groups))
	subs := make([]table.Value, len(groups))
	for i, rows := range groups {
		if len(rows) > 0 {
			firsts[i] = rows[0]
		}
		subs[i] = table.Nested(rest.Take(rows))
	}

	keyTable, err := t.Select(keys...)
	if err != nil {
		return nil, fmt.Errorf("nest: %w", err)
	}
	out := keyTable.Take(firsts)
	data, err := table.NewTableColumn(into, rest.Schema(), subs)
	if err != nil {
		return nil, fmt.Errorf("nest: %w", err)
	}
	out, err = out.WithColumn(data)
	if err != nil {
		return nil, fmt.Errorf("nest: %w", err)
	}
	return out, nil
}
