package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/nestloom-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set nestloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		fmt.Fprintf(out, "decimal_separator: %q\n", cfg.DecimalSeparator)
		fmt.Fprintf(out, "thousands_separator: %q\n", cfg.ThousandsSeparator)
		fmt.Fprintf(out, "split_units: %t\n", cfg.SplitUnits)
		fmt.Fprintf(out, "max_rows: %d\n", cfg.MaxRows)
		fmt.Fprintf(out, "nest_column: %s\n", cfg.NestColumn)
		fmt.Fprintf(out, "drop_extra: %t\n", cfg.DropExtra)
		fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
		fmt.Fprintf(out, "format: %s\n", cfg.Format)
		fmt.Fprintf(out, "preview_rows: %d\n", cfg.PreviewRows)
		fmt.Fprintf(out, "pipelines_dir: %s\n", cfg.PipelinesDir)
		fmt.Fprintf(out, "runs_dir: %s\n", cfg.RunsDir)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// Reload so CLI overrides like --format are not persisted.
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		switch key {
		case "delimiter":
			c.Delimiter = val
		case "decimal_separator":
			c.DecimalSeparator = val
		case "thousands_separator":
			c.ThousandsSeparator = val
		case "split_units":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for split_units: %v", val)
			}
			c.SplitUnits = b
		case "max_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for max_rows: %v", val)
			}
			c.MaxRows = i
		case "nest_column":
			if strings.TrimSpace(val) == "" {
				return fmt.Errorf("nest_column must not be empty")
			}
			c.NestColumn = val
		case "drop_extra":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for drop_extra: %v", val)
			}
			c.DropExtra = b
		case "workers":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for workers: %w", err)
			}
			c.Workers = i
		case "format":
			c.Format = strings.ToLower(val)
		case "preview_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for preview_rows: %v", val)
			}
			c.PreviewRows = i
		case "pipelines_dir":
			c.PipelinesDir = val
		case "runs_dir":
			c.RunsDir = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
