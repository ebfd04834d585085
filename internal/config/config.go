package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Parsing
	Delimiter          string `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`
	SplitUnits         bool   `mapstructure:"split_units" yaml:"split_units"`
	MaxRows            int    `mapstructure:"max_rows" yaml:"max_rows"`

	// Nest / unnest
	NestColumn string `mapstructure:"nest_column" yaml:"nest_column"`
	DropExtra  bool   `mapstructure:"drop_extra" yaml:"drop_extra"`
	Workers    int    `mapstructure:"workers" yaml:"workers"`

	// Output
	Format      string `mapstructure:"format" yaml:"format"`
	PreviewRows int    `mapstructure:"preview_rows" yaml:"preview_rows"`

	// Storage
	PipelinesDir string `mapstructure:"pipelines_dir" yaml:"pipelines_dir"`
	RunsDir      string `mapstructure:"runs_dir" yaml:"runs_dir"`
}

// Dir returns ~/.nestloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".nestloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.nestloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by callers) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("NESTLOOM")
	v.AutomaticEnv()

	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("split_units", false)
	v.SetDefault("max_rows", 0)
	v.SetDefault("nest_column", "data")
	v.SetDefault("drop_extra", true)
	v.SetDefault("workers", 1)
	v.SetDefault("format", "markdown")
	v.SetDefault("preview_rows", 20)
	v.SetDefault("pipelines_dir", "")
	v.SetDefault("runs_dir", "")

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.PipelinesDir == "" {
		c.PipelinesDir = filepath.Join(dir, "pipelines")
	}
	if c.RunsDir == "" {
		c.RunsDir = filepath.Join(dir, "runs")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks enumerated and single-character fields.
func (c *Global) Validate() error {
	for name, s := range map[string]string{
		"delimiter":           c.Delimiter,
		"decimal_separator":   c.DecimalSeparator,
		"thousands_separator": c.ThousandsSeparator,
	} {
		if len([]rune(unescape(s))) > 1 {
			return fmt.Errorf("config %s: want a single character, got %q", name, s)
		}
	}
	switch c.Format {
	case "markdown", "csv", "json":
	default:
		return fmt.Errorf("config format: want markdown, csv or json, got %q", c.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config workers: must be >= 0, got %d", c.Workers)
	}
	return nil
}

// Rune returns the first rune of s; "\t" and "tab" mean a tab.
func Rune(s string) rune {
	r := []rune(unescape(s))
	if len(r) == 0 {
		return 0
	}
	return r[0]
}

func unescape(s string) string {
	switch s {
	case `\t`, "tab":
		return "\t"
	}
	return s
}
