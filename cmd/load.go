package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/nestloom-cli/internal/config"
	"github.com/KaramelBytes/nestloom-cli/internal/loader"
	"github.com/KaramelBytes/nestloom-cli/internal/table"
	"github.com/spf13/cobra"
)

// Input flags shared by every command that reads a dataset.
var (
	inDelimiter  string
	inDecimal    string
	inThousands  string
	inMaxRows    int
	inSheetName  string
	inSheetIndex int
	inSplitUnits bool
)

func addInputFlags(c *cobra.Command) {
	c.Flags().StringVar(&inDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (default from extension)")
	c.Flags().StringVar(&inDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	c.Flags().StringVar(&inThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	c.Flags().IntVar(&inMaxRows, "max-rows", 0, "maximum data rows to read (0 = unlimited)")
	c.Flags().StringVar(&inSheetName, "sheet-name", "", "XLSX: sheet name to read")
	c.Flags().IntVar(&inSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	c.Flags().BoolVar(&inSplitUnits, "split-units", false, "strip units like '(g/L)' from headers and normalize values")
}

// loaderOptions merges config defaults with input flags.
func loaderOptions(c *cobra.Command) (loader.Options, error) {
	opt := loader.DefaultOptions()
	if cfg != nil {
		opt.Delimiter = cfgpkg.Rune(cfg.Delimiter)
		opt.DecimalSeparator = cfgpkg.Rune(cfg.DecimalSeparator)
		opt.ThousandsSeparator = cfgpkg.Rune(cfg.ThousandsSeparator)
		opt.MaxRows = cfg.MaxRows
		opt.SplitUnits = cfg.SplitUnits
	}
	f := c.Flags()
	if f.Changed("delimiter") {
		switch inDelimiter {
		case ",", ";", "|":
			opt.Delimiter = rune(inDelimiter[0])
		case "\t", `\t`, "tab":
			opt.Delimiter = '\t'
		default:
			return opt, fmt.Errorf("unsupported --delimiter: %s", inDelimiter)
		}
	}
	if f.Changed("decimal") {
		switch strings.ToLower(strings.TrimSpace(inDecimal)) {
		case ",", "comma":
			opt.DecimalSeparator = ','
		case ".", "dot":
			opt.DecimalSeparator = '.'
		default:
			return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", inDecimal)
		}
	}
	if f.Changed("thousands") {
		switch strings.ToLower(inThousands) {
		case ",":
			opt.ThousandsSeparator = ','
		case ".":
			opt.ThousandsSeparator = '.'
		case "space", " ":
			opt.ThousandsSeparator = ' '
		default:
			return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", inThousands)
		}
	}
	if f.Changed("max-rows") {
		opt.MaxRows = inMaxRows
	}
	if f.Changed("split-units") {
		opt.SplitUnits = inSplitUnits
	}
	opt.SheetName = inSheetName
	opt.SheetIndex = inSheetIndex
	return opt, nil
}

func loadTable(c *cobra.Command, path string) (*table.Table, error) {
	opt, err := loaderOptions(c)
	if err != nil {
		return nil, err
	}
	t, err := loader.Load(path, opt)
	if err != nil {
		return nil, err
	}
	debugf("loaded %s: %d rows, schema %s", path, t.NumRows(), t.Schema())
	return t, nil
}

func workers() int {
	if cfg == nil {
		return 1
	}
	return cfg.Workers
}

func nestColumn(flag string) string {
	if flag != "" {
		return flag
	}
	if cfg != nil && cfg.NestColumn != "" {
		return cfg.NestColumn
	}
	return "data"
}
