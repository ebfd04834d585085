package cmd

import (
	"github.com/KaramelBytes/nestloom-cli/internal/nest"
	"github.com/spf13/cobra"
)

var (
	nestBy   []string
	nestInto string
)

var nestCmd = &cobra.Command{
	Use:   "nest <file>",
	Short: "Group rows by key columns and pack the rest into a nested table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable(cmd, args[0])
		if err != nil {
			return err
		}
		nested, err := nest.NestInto(t, nestColumn(nestInto), nestBy...)
		if err != nil {
			return err
		}
		debugf("nested %d rows into %d groups", t.NumRows(), nested.NumRows())
		return writeTable(cmd.OutOrStdout(), nested)
	},
}

func init() {
	rootCmd.AddCommand(nestCmd)
	nestCmd.Flags().StringSliceVar(&nestBy, "by", nil, "comma-separated key columns (none = one group)")
	nestCmd.Flags().StringVar(&nestInto, "into", "", "name of the nested column (default from config, \"data\")")
	addInputFlags(nestCmd)
}
