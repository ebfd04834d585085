package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/nestloom-cli/internal/analysis"
	"github.com/KaramelBytes/nestloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	descGroupBy    []string
	descCorr       bool
	descCorrGroups bool
	descOutliers   bool
	descOutlierThr float64
	descSampleRows int
	descOutputDir  string
)

var describeCmd = &cobra.Command{
	Use:   "describe <files...>",
	Short: "Summarize one or more datasets (globs allowed)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		opt.SampleRows = descSampleRows
		opt.GroupBy = descGroupBy
		opt.Correlations = descCorr
		opt.CorrPerGroup = descCorrGroups
		opt.Outliers = descOutliers
		if descOutlierThr > 0 {
			opt.OutlierThreshold = descOutlierThr
		}
		out := cmd.OutOrStdout()
		used := map[string]int{}
		for i, path := range files {
			if len(files) > 1 {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", i+1, len(files), path)
			}
			t, err := loadTable(cmd, path)
			if err != nil {
				return err
			}
			opt.Name = filepath.Base(path)
			rep, err := analysis.Summarize(t, opt)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			md := rep.Markdown()
			if descOutputDir == "" {
				fmt.Fprintln(out, md)
				continue
			}
			if err := utils.EnsureDir(descOutputDir); err != nil {
				return err
			}
			base := strings.TrimSuffix(opt.Name, filepath.Ext(opt.Name))
			used[base]++
			if n := used[base]; n > 1 {
				base = fmt.Sprintf("%s__%d", base, n)
			}
			dest := filepath.Join(descOutputDir, base+".summary.md")
			if err := utils.SafeWriteFile(dest, []byte(md)); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote summary to %s\n", dest)
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]bool{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringSliceVar(&descGroupBy, "group-by", nil, "comma-separated column names to group by")
	describeCmd.Flags().BoolVar(&descCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	describeCmd.Flags().BoolVar(&descCorrGroups, "corr-per-group", false, "compute correlation pairs within each group")
	describeCmd.Flags().BoolVar(&descOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	describeCmd.Flags().Float64Var(&descOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers")
	describeCmd.Flags().IntVar(&descSampleRows, "sample-rows", 5, "number of leading rows to include")
	describeCmd.Flags().StringVarP(&descOutputDir, "output-dir", "o", "", "write <name>.summary.md files here instead of stdout")
	addInputFlags(describeCmd)
}
