package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/nestloom-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	listPipelines bool
	listRuns      bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pipelines and saved runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Neither flag means both.
		showPipelines, showRuns := listPipelines, listRuns
		if !showPipelines && !showRuns {
			showPipelines, showRuns = true, true
		}
		out := cmd.OutOrStdout()
		if showPipelines {
			if err := listAllPipelines(out); err != nil {
				return err
			}
		}
		if showRuns {
			if err := listAllRuns(out); err != nil {
				return err
			}
		}
		return nil
	},
}

func listAllPipelines(w io.Writer) error {
	root, err := pipelinesDir()
	if err != nil {
		return err
	}
	files, err := pipeline.List(root)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Pipelines:")
	if len(files) == 0 {
		fmt.Fprintln(w, "(no pipelines)")
		return nil
	}
	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		p, err := pipeline.Load(f)
		if err != nil {
			fmt.Fprintf(w, "- %s (unreadable: %v)\n", name, err)
			continue
		}
		fmt.Fprintf(w, "- %s: %s ~ %s by [%s]\n", name, p.Model.Y, p.Model.X, strings.Join(p.GroupBy, ", "))
	}
	return nil
}

func listAllRuns(w io.Writer) error {
	root, err := runsDir("")
	if err != nil {
		return err
	}
	runs, err := pipeline.ListRuns(root)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Runs:")
	if len(runs) == 0 {
		fmt.Fprintln(w, "(no runs)")
		return nil
	}
	for _, r := range runs {
		outs := make([]string, 0, len(r.Outputs))
		for _, o := range r.Outputs {
			outs = append(outs, string(o.Name))
		}
		fmt.Fprintf(w, "- %s %s %s (%d groups; %s)\n", r.StartedAt.Format("2006-01-02 15:04"), r.ID, r.Name, r.Groups, strings.Join(outs, ", "))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listPipelines, "pipelines", false, "list pipeline files")
	listCmd.Flags().BoolVar(&listRuns, "runs", false, "list saved runs")
}
