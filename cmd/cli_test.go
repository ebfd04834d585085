package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cfgpkg "github.com/KaramelBytes/nestloom-cli/internal/config"
	"github.com/KaramelBytes/nestloom-cli/internal/pipeline"
	"github.com/KaramelBytes/nestloom-cli/internal/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groupsCSV = `g,x,y
a,1,3.1
a,2,4.9
a,3,7.2
a,4,8.8
b,1,2.9
b,2,6.1
b,3,9.0
b,4,12.2
`

// resetFlags restores every flag to its default so state does not leak
// between invocations of the shared rootCmd.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd executes the root command with args and returns stdout.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setup(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "groups.csv")
	require.NoError(t, os.WriteFile(path, []byte(groupsCSV), 0o644))
	return path
}

func TestCLI_NestShowsOneRowPerGroup(t *testing.T) {
	path := setup(t)
	out, err := execCmd(t, "nest", path, "--by", "g")
	require.NoError(t, err)
	assert.Contains(t, out, "| g | data |")
	assert.Equal(t, 2, strings.Count(out, "<table [4 × 2]>"))
}

func TestCLI_NestRejectsUnknownKey(t *testing.T) {
	path := setup(t)
	_, err := execCmd(t, "nest", path, "--by", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestCLI_UnnestRoundTrip(t *testing.T) {
	path := setup(t)
	out, err := execCmd(t, "unnest", path, "--by", "g")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Round trip matches input (8 rows, 2 groups)")
}

func TestCLI_UnnestCSVFormat(t *testing.T) {
	path := setup(t)
	out, err := execCmd(t, "unnest", path, "--by", "g", "--format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "g,x,y", lines[0])
}

func TestCLI_ModelsGlanceCSV(t *testing.T) {
	path := setup(t)
	out, err := execCmd(t, "models", path, "--by", "g", "--x", "x", "--y", "y", "--format", "csv", "--workers", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "g,r_squared,"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "a,"))
	assert.True(t, strings.HasPrefix(lines[2], "b,"))
}

func TestCLI_ModelsTidyHasTwoTermsPerGroup(t *testing.T) {
	path := setup(t)
	out, err := execCmd(t, "models", path, "--by", "g", "--x", "x", "--y", "y", "-o", "tidy", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "(Intercept)"))
	assert.Contains(t, out, "g,term,estimate")
}

func TestCLI_ModelsRequiresFormula(t *testing.T) {
	path := setup(t)
	_, err := execCmd(t, "models", path, "--by", "g")
	require.Error(t, err)
	_, err = execCmd(t, "models", path, "--x", "x", "--y", "y", "-o", "bogus")
	require.Error(t, err)
}

func TestCLI_DescribeWritesSummaries(t *testing.T) {
	path := setup(t)
	out, err := execCmd(t, "describe", path, "--group-by", "g", "--correlations")
	require.NoError(t, err)
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "[GROUP-BY SUMMARY]")

	dir := t.TempDir()
	out, err = execCmd(t, "describe", filepath.Join(filepath.Dir(path), "*.csv"), "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote summary to")
	_, err = os.Stat(filepath.Join(dir, "groups.summary.md"))
	assert.NoError(t, err)
}

func TestCLI_InitRunListSaved(t *testing.T) {
	path := setup(t)
	_, err := execCmd(t, "init", "demo", "--source", path, "--by", "g", "--x", "x", "--y", "y")
	require.NoError(t, err)

	// Second init without --force is refused.
	_, err = execCmd(t, "init", "demo")
	require.Error(t, err)

	runs := t.TempDir()
	out, err := execCmd(t, "run", "demo", "--save", "--runs-dir", runs, "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ demo: 8 rows, 2 groups")
	assert.Contains(t, out, "## glance (2 rows")
	assert.Contains(t, out, "✓ Saved run")

	entries, err := os.ReadDir(runs)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	for _, f := range []string{"run.json", "glance.csv", "tidy.csv"} {
		_, err := os.Stat(filepath.Join(runs, entries[0].Name(), f))
		assert.NoError(t, err, f)
	}

	out, err = execCmd(t, "list", "--pipelines")
	require.NoError(t, err)
	assert.Contains(t, out, "- demo: y ~ x by [g]")
	assert.NotContains(t, out, "Runs:")

	_, err = execCmd(t, "config", "set", "runs_dir", runs)
	require.NoError(t, err)
	out, err = execCmd(t, "list", "--runs")
	require.NoError(t, err)
	assert.Contains(t, out, entries[0].Name())
}

func TestCLI_RunUnknownPipeline(t *testing.T) {
	setup(t)
	_, err := execCmd(t, "run", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline not found")
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	setup(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	_, err := execCmd(t, "config", "set", "workers", "3", "--config", cfgPath)
	require.NoError(t, err)
	out, err := execCmd(t, "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "workers: 3")

	_, err = execCmd(t, "config", "set", "format", "xml", "--config", cfgPath)
	require.Error(t, err)
	_, err = execCmd(t, "config", "set", "nope", "1", "--config", cfgPath)
	require.Error(t, err)
}

func TestPipelineWorkersFallsBackToConfig(t *testing.T) {
	resetFlags(rootCmd)
	saved := cfg
	t.Cleanup(func() { cfg = saved })
	cfg = &cfgpkg.Global{Workers: 3, Format: "markdown"}

	p := pipeline.New("w")
	assert.Equal(t, 3, pipelineWorkers(p))

	p.Workers = 2
	assert.Equal(t, 0, pipelineWorkers(p), "pipeline setting wins over config")

	require.NoError(t, rootCmd.PersistentFlags().Set("workers", "5"))
	cfg.Workers = 5
	assert.Equal(t, 5, pipelineWorkers(p), "--workers wins over the pipeline")
	resetFlags(rootCmd)
}

func TestEmptyFormatRendersMarkdown(t *testing.T) {
	saved := cfg
	t.Cleanup(func() { cfg = saved })
	cfg = &cfgpkg.Global{Format: "", PreviewRows: 5}
	assert.True(t, markdownOutput())

	tb, err := table.New(table.NumberColumn("x", 1, 2))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, tb))
	assert.Contains(t, buf.String(), "| x |")

	cfg.Format = "csv"
	assert.False(t, markdownOutput())
}
