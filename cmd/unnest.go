package cmd

import (
	"fmt"

	"github.com/KaramelBytes/nestloom-cli/internal/nest"
	"github.com/spf13/cobra"
)

var (
	unnestBy        []string
	unnestCol       string
	unnestDropExtra bool
	unnestKeepEmpty bool
	unnestNameSep   string
)

var unnestCmd = &cobra.Command{
	Use:   "unnest <file>",
	Short: "Nest by key columns, then flatten again and check the round trip",
	Long: `unnest groups the input by --by, flattens the nested column again, and
reports whether the result holds the same rows as the input (order aside).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable(cmd, args[0])
		if err != nil {
			return err
		}
		col := nestColumn(unnestCol)
		nested, err := nest.NestInto(t, col, unnestBy...)
		if err != nil {
			return err
		}
		opt := nest.UnnestOptions{KeepEmpty: unnestKeepEmpty, NameSep: unnestNameSep}
		opt.DropExtra = cfg != nil && cfg.DropExtra
		if cmd.Flags().Changed("drop-extra") {
			opt.DropExtra = unnestDropExtra
		}
		flat, err := nest.Unnest(nested, []string{col}, opt)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := writeTable(out, flat); err != nil {
			return err
		}
		if !markdownOutput() {
			return nil
		}
		if flat.EqualUnordered(t) {
			fmt.Fprintf(out, "\n✓ Round trip matches input (%d rows, %d groups)\n", flat.NumRows(), nested.NumRows())
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: round trip differs from input (%d → %d rows)\n", t.NumRows(), flat.NumRows())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unnestCmd)
	unnestCmd.Flags().StringSliceVar(&unnestBy, "by", nil, "comma-separated key columns")
	unnestCmd.Flags().StringVar(&unnestCol, "col", "", "nested column name (default from config, \"data\")")
	unnestCmd.Flags().BoolVar(&unnestDropExtra, "drop-extra", false, "drop other list columns while unnesting (overrides config)")
	unnestCmd.Flags().BoolVar(&unnestKeepEmpty, "keep-empty", false, "keep rows whose nested table is empty, filled with nulls")
	unnestCmd.Flags().StringVar(&unnestNameSep, "name-sep", "", "prefix sub-table columns as <col><sep><name>")
	addInputFlags(unnestCmd)
}
