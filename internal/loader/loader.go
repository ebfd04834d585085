package loader

import (
	"errors"
	"fmt"
	"os"

	"github.com/KaramelBytes/nestloom-cli/internal/table"
)

// Loader turns a file into a table.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) (*table.Table, error)
}

// Options controls parsing of tabular files.
type Options struct {
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// SplitUnits strips a trailing unit like "Mass (g/L)" or "Temp [°F]"
	// from header names.
	SplitUnits bool
	// UnitTargets converts values of a split unit to another unit,
	// e.g. {"g/L": "mg/L", "°F": "°C"}.
	UnitTargets map[string]string
	// XLSX sheet selection: by name, else 1-based index.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns reasonable defaults for dataset loading.
func DefaultOptions() Options {
	return Options{
		SheetIndex: 1,
		UnitTargets: map[string]string{
			"g/L":  "mg/L",
			"ug/L": "mg/L",
			"°F":   "°C",
		},
	}
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// Load selects a loader based on filename and returns the parsed table.
func Load(path string, opt Options) (*table.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(path, opt)
		}
	}
	return nil, fmt.Errorf("load %s: %w", path, ErrUnsupported)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
	Register(jsonLoader{})
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported dataset format")
