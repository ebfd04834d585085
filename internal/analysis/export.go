package analysis

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/KaramelBytes/nestloom-cli/internal/table"
)

// ErrNotFlat is returned when a list or handle column cannot be written as CSV.
var ErrNotFlat = errors.New("table has non-scalar columns; unnest first")

// WriteCSV writes a flat table with a header row. Nulls are empty cells.
func WriteCSV(w io.Writer, t *table.Table) error {
	for _, c := range t.Columns() {
		if !c.Kind().IsScalar() {
			return fmt.Errorf("write csv: column %q is %s: %w", c.Name(), c.Kind(), ErrNotFlat)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	rec := make([]string, t.NumColumns())
	for r := 0; r < t.NumRows(); r++ {
		for j, v := range t.Row(r) {
			rec[j] = ""
			if !v.IsNull() {
				rec[j] = v.String()
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes t as an indented array of row objects.
func WriteJSON(w io.Writer, t *table.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
