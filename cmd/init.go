package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/nestloom-cli/internal/pipeline"
	"github.com/KaramelBytes/nestloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	initSource      string
	initDescription string
	initGroupBy     []string
	initX           string
	initY           string
	initForce       bool
)

var initCmd = &cobra.Command{
	Use:   "init <pipeline-name>",
	Short: "Create a pipeline skeleton in the pipelines directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("pipeline name must not contain path separators: %s", name)
		}
		root, err := pipelinesDir()
		if err != nil {
			return err
		}
		dest := filepath.Join(root, name+".yaml")
		// Refuse to overwrite an existing pipeline.
		if _, err := os.Stat(dest); err == nil && !initForce {
			return fmt.Errorf("pipeline already exists at %s (use --force to overwrite)", dest)
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat pipeline file: %w", err)
		}
		p := pipeline.New(name)
		p.Description = initDescription
		if initSource != "" {
			abs, err := filepath.Abs(initSource)
			if err != nil {
				return fmt.Errorf("resolve source: %w", err)
			}
			p.Source = abs
		}
		if len(initGroupBy) > 0 {
			p.GroupBy = initGroupBy
		}
		if initX != "" {
			p.Model.X = initX
		}
		if initY != "" {
			p.Model.Y = initY
		}
		if err := p.Save(dest); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Pipeline initialized: %s\n", dest)
		return nil
	},
}

// pipelinesDir resolves the configured pipelines directory, expanding a
// leading "~", and makes sure it exists.
func pipelinesDir() (string, error) {
	dir := ""
	if cfg != nil {
		dir = cfg.PipelinesDir
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".nestloom", "pipelines")
	}
	dir, err := expandHome(dir)
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func runsDir(override string) (string, error) {
	dir := override
	if dir == "" && cfg != nil {
		dir = cfg.RunsDir
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".nestloom", "runs")
	}
	return expandHome(dir)
}

func expandHome(dir string) (string, error) {
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = strings.TrimPrefix(dir, "~")
		dir = strings.TrimPrefix(dir, string(os.PathSeparator))
		dir = strings.TrimPrefix(dir, "/")
		dir = filepath.Join(home, dir)
	}
	return filepath.Clean(dir), nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initSource, "source", "", "dataset the pipeline reads (stored as an absolute path)")
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "pipeline description")
	initCmd.Flags().StringSliceVar(&initGroupBy, "by", nil, "comma-separated group key columns")
	initCmd.Flags().StringVar(&initX, "x", "", "predictor column")
	initCmd.Flags().StringVar(&initY, "y", "", "response column")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing pipeline file")
}
