package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/nestloom-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/nestloom-cli/internal/config"
	"github.com/KaramelBytes/nestloom-cli/internal/table"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	flagFormat  string
	flagWorkers int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "nestloom",
	Short: "nestloom: nest, map, and unnest tables for many-models analysis",
	Long: `nestloom groups a table into one row per key with the remaining columns
packed into a nested table, fits a model to every group, and flattens the
per-group results back into ordinary tables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.nestloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "", "output format: markdown|csv|json (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "parallel workers for per-group work (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{NestColumn: "data", DropExtra: true, Workers: 1, Format: "markdown", PreviewRows: 20}
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("format") {
		cfg.Format = strings.ToLower(flagFormat)
	}
	if f.Changed("workers") && flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	debugf("config: format=%s workers=%d nest_column=%s", cfg.Format, cfg.Workers, cfg.NestColumn)
}

// debugf prints diagnostics to stderr when --debug is set.
func debugf(format string, args ...any) {
	if debug {
		fmt.Fprintf(os.Stderr, "[debug] "+format+"\n", args...)
	}
}

// markdownOutput reports whether tables are rendered as Markdown; an
// unset format means Markdown.
func markdownOutput() bool {
	return cfg == nil || cfg.Format == "markdown" || cfg.Format == ""
}

// writeTable renders t in the configured format. Markdown output is
// limited to the configured preview rows.
func writeTable(w io.Writer, t *table.Table) error {
	if markdownOutput() {
		limit := 0
		if cfg != nil {
			limit = cfg.PreviewRows
		}
		_, err := fmt.Fprint(w, analysis.Markdown(t, limit))
		return err
	}
	switch cfg.Format {
	case "csv":
		return analysis.WriteCSV(w, t)
	case "json":
		return analysis.WriteJSON(w, t)
	default:
		return fmt.Errorf("unsupported --format: %s (use markdown|csv|json)", cfg.Format)
	}
}
