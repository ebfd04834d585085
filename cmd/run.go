package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/KaramelBytes/nestloom-cli/internal/pipeline"
	"github.com/KaramelBytes/nestloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	runSave     bool
	runRunsDir  string
	runTimeout  int
	runShowRows bool
)

var runCmd = &cobra.Command{
	Use:   "run <pipeline|name>",
	Short: "Run a pipeline: load, nest, fit per group, and tidy the results",
	Example: `  nestloom run gapminder
  nestloom run ./pipelines/gapminder.yaml --save --workers 4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := pipelinesDir()
		if err != nil {
			return err
		}
		path, err := utils.ResolvePipeline(args[0], dir)
		if err != nil {
			return err
		}
		p, err := pipeline.Load(path)
		if err != nil {
			return err
		}
		lopt, err := loaderOptions(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(runTimeout)*time.Second)
			defer cancel()
		}
		opt := pipeline.RunOptions{Loader: lopt, Logf: debugf, Workers: pipelineWorkers(p)}
		res, err := p.Run(ctx, opt)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ %s: %d rows, %d groups, %s\n", res.Name, res.Rows, res.Groups, res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
		for _, info := range res.Outputs {
			fmt.Fprintf(out, "\n## %s (%d rows × %d columns)\n\n", info.Name, info.Rows, info.Columns)
			if runShowRows {
				if err := writeTable(out, res.Tables[info.Name]); err != nil {
					return err
				}
			}
		}
		if !runSave {
			return nil
		}
		root, err := runsDir(runRunsDir)
		if err != nil {
			return err
		}
		runDir, err := res.Save(root)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n✓ Saved run %s to %s\n", res.ID, runDir)
		return nil
	},
}

// pipelineWorkers picks the pool size for a run: --workers, then the
// pipeline's own workers, then the configured default. Zero leaves the
// pipeline setting in place.
func pipelineWorkers(p *pipeline.Pipeline) int {
	if rootCmd.PersistentFlags().Changed("workers") || p.Workers == 0 {
		return workers()
	}
	return 0
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runSave, "save", false, "save run.json and output tables under the runs directory")
	runCmd.Flags().StringVar(&runRunsDir, "runs-dir", "", "override the runs directory")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "abort the run after this many seconds (0 = no limit)")
	runCmd.Flags().BoolVar(&runShowRows, "show", true, "print each output table")
	addInputFlags(runCmd)
}
