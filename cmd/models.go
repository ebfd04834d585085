package cmd

import (
	"fmt"

	"github.com/KaramelBytes/nestloom-cli/internal/model"
	"github.com/KaramelBytes/nestloom-cli/internal/nest"
	"github.com/KaramelBytes/nestloom-cli/internal/table"
	"github.com/spf13/cobra"
)

var (
	modelsBy     []string
	modelsX      string
	modelsY      string
	modelsOutput string
)

var modelsCmd = &cobra.Command{
	Use:   "models <file>",
	Short: "Fit a linear model per group and print tidy results",
	Example: `  nestloom models gapminder.csv --by country --x year --y lifeExp --output glance
  nestloom models gapminder.csv --by country,continent --x year --y lifeExp --output tidy --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if modelsX == "" || modelsY == "" {
			return fmt.Errorf("--x and --y are required")
		}
		t, err := loadTable(cmd, args[0])
		if err != nil {
			return err
		}
		col := nestColumn("")
		nested, err := nest.NestInto(t, col, modelsBy...)
		if err != nil {
			return err
		}
		opts := []nest.Option{nest.WithWorkers(workers())}
		fitted, err := model.FitEach(nested, col, modelsX, modelsY, model.DefaultColumn, opts...)
		if err != nil {
			return err
		}
		debugf("fitted %d models with %d workers", fitted.NumRows(), workers())

		var derived *table.Table
		switch modelsOutput {
		case "glance":
			derived, err = model.GlanceEach(fitted, model.DefaultColumn, modelsOutput, opts...)
		case "tidy":
			derived, err = model.TidyEach(fitted, model.DefaultColumn, modelsOutput, opts...)
		case "augment":
			derived, err = model.AugmentEach(fitted, model.DefaultColumn, col, modelsOutput, opts...)
		case "residuals":
			derived, err = model.ResidualsEach(fitted, model.DefaultColumn, col, modelsOutput, "resid", opts...)
		default:
			return fmt.Errorf("unsupported --output: %s (use glance|tidy|augment|residuals)", modelsOutput)
		}
		if err != nil {
			return err
		}
		flat, err := nest.Unnest(derived, []string{modelsOutput}, nest.UnnestOptions{DropExtra: true})
		if err != nil {
			return err
		}
		return writeTable(cmd.OutOrStdout(), flat)
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringSliceVar(&modelsBy, "by", nil, "comma-separated group key columns")
	modelsCmd.Flags().StringVar(&modelsX, "x", "", "predictor column")
	modelsCmd.Flags().StringVar(&modelsY, "y", "", "response column")
	modelsCmd.Flags().StringVarP(&modelsOutput, "output", "o", "glance", "glance|tidy|augment|residuals")
	addInputFlags(modelsCmd)
}
