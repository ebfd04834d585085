package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/nestloom-cli/internal/table"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".tab")
}

func (csvLoader) Load(path string, opt Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path)
	}
	return ReadCSV(f, opt)
}

// ReadCSV parses delimited text with a header row. A zero Delimiter means
// comma.
func ReadCSV(r io.Reader, opt Options) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return table.New()
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	var rows [][]string
	for opt.MaxRows <= 0 || len(rows) < opt.MaxRows {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return FromRecords(header, rows, opt)
}

// FromRecords builds a typed table from string records. Each column becomes
// number when every non-empty cell parses as one, else bool, else string.
// Empty cells are null and short rows are padded.
func FromRecords(header []string, rows [][]string, opt Options) (*table.Table, error) {
	names, units := headerNames(header, opt.SplitUnits)
	cols := make([]*table.Column, len(names))
	for j, name := range names {
		cells := make([]string, len(rows))
		for i, rec := range rows {
			if j < len(rec) {
				cells[i] = strings.TrimSpace(rec[j])
			}
		}
		col, err := inferColumn(name, units[j], cells, opt)
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}
	return table.NewN(len(rows), cols...)
}

func headerNames(header []string, split bool) (names, units []string) {
	seen := make(map[string]bool, len(header))
	names = make([]string, len(header))
	units = make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if split {
			name, units[i] = splitUnits(name)
		}
		if name == "" {
			name = fmt.Sprintf("col%d", i+1)
		}
		base := name
		for k := 2; seen[name]; k++ {
			name = fmt.Sprintf("%s_%d", base, k)
		}
		seen[name] = true
		names[i] = name
	}
	return names, units
}

func inferColumn(name, unit string, cells []string, opt Options) (*table.Column, error) {
	vals := make([]table.Value, len(cells))
	if kind := detectKind(cells, opt); kind == table.KindNumber {
		target := opt.UnitTargets[unit]
		for i, c := range cells {
			if c == "" {
				continue
			}
			x, _ := parseNumeric(c, opt)
			if target != "" {
				x, _ = convertUnit(x, unit, target)
			}
			vals[i] = table.Number(x)
		}
		return table.NewColumnOf(name, kind, vals)
	} else if kind == table.KindBool {
		for i, c := range cells {
			if b, ok := parseBool(c); ok {
				vals[i] = table.Bool(b)
			}
		}
		return table.NewColumnOf(name, kind, vals)
	}
	for i, c := range cells {
		if c != "" {
			vals[i] = table.String(c)
		}
	}
	return table.NewColumnOf(name, table.KindString, vals)
}

func detectKind(cells []string, opt Options) table.Kind {
	num, boolean, filled := true, true, false
	for _, c := range cells {
		if c == "" {
			continue
		}
		filled = true
		if num {
			_, num = parseNumeric(c, opt)
		}
		if boolean {
			_, boolean = parseBool(c)
		}
		if !num && !boolean {
			return table.KindString
		}
	}
	switch {
	case !filled:
		return table.KindString
	case num:
		return table.KindNumber
	case boolean:
		return table.KindBool
	}
	return table.KindString
}
