package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/nestloom-cli/internal/nest"
	"github.com/KaramelBytes/nestloom-cli/internal/utils"
	"gopkg.in/yaml.v3"
)

// Output names a per-group table a pipeline can produce.
type Output string

const (
	OutputGlance    Output = "glance"
	OutputTidy      Output = "tidy"
	OutputAugment   Output = "augment"
	OutputResiduals Output = "residuals"
)

var knownOutputs = map[Output]bool{
	OutputGlance: true, OutputTidy: true, OutputAugment: true, OutputResiduals: true,
}

// ErrInvalid marks a pipeline that fails validation.
var ErrInvalid = errors.New("invalid pipeline")

// Pipeline describes a many-models run: load, group, fit, and tidy.
type Pipeline struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Source      string    `yaml:"source"`
	Delimiter   string    `yaml:"delimiter,omitempty"`
	Sheet       string    `yaml:"sheet,omitempty"`
	GroupBy     []string  `yaml:"group_by"`
	NestColumn  string    `yaml:"nest_column,omitempty"`
	Model       ModelSpec `yaml:"model"`
	Outputs     []Output  `yaml:"outputs"`
	DropExtra   *bool     `yaml:"drop_extra,omitempty"`
	Workers     int       `yaml:"workers,omitempty"`

	// Not serialized: file the pipeline was loaded from
	path string `yaml:"-"`
}

// ModelSpec is the formula y ~ x fitted per group.
type ModelSpec struct {
	X string `yaml:"x"`
	Y string `yaml:"y"`
}

// New returns a skeleton pipeline for the init command.
func New(name string) *Pipeline {
	return &Pipeline{
		Name:    name,
		Source:  "data.csv",
		GroupBy: []string{"group"},
		Model:   ModelSpec{X: "x", Y: "y"},
		Outputs: []Output{OutputGlance, OutputTidy},
	}
}

// Load reads a pipeline YAML file. Unknown keys are rejected.
func Load(path string) (*Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var p Pipeline
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse pipeline %s: %w", filepath.Base(path), err)
	}
	p.path = path
	return &p, nil
}

// Path returns the file the pipeline was loaded from or saved to.
func (p *Pipeline) Path() string { return p.path }

// Save writes the pipeline as YAML using an atomic write.
func (p *Pipeline) Save(path string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	b, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return err
	}
	p.path = path
	return nil
}

// Validate checks required fields and output names.
func (p *Pipeline) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(p.Source) == "" {
		problems = append(problems, "source is required")
	}
	if p.Model.X == "" || p.Model.Y == "" {
		problems = append(problems, "model.x and model.y are required")
	}
	seen := map[string]bool{}
	for _, k := range p.GroupBy {
		if seen[k] {
			problems = append(problems, fmt.Sprintf("group_by lists %q twice", k))
		}
		seen[k] = true
	}
	if len(p.Outputs) == 0 {
		problems = append(problems, "at least one output is required")
	}
	outs := map[Output]bool{}
	for _, o := range p.Outputs {
		if !knownOutputs[o] {
			problems = append(problems, fmt.Sprintf("unknown output %q (use %s)", o, strings.Join(OutputNames(), ", ")))
		}
		if outs[o] {
			problems = append(problems, fmt.Sprintf("output %q listed twice", o))
		}
		outs[o] = true
	}
	if p.Workers < 0 {
		problems = append(problems, "workers must be >= 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalid, p.Name, strings.Join(problems, "; "))
	}
	return nil
}

// OutputNames lists the supported outputs in sorted order.
func OutputNames() []string {
	names := make([]string, 0, len(knownOutputs))
	for o := range knownOutputs {
		names = append(names, string(o))
	}
	sort.Strings(names)
	return names
}

func (p *Pipeline) nestColumn() string {
	if p.NestColumn != "" {
		return p.NestColumn
	}
	return nest.DefaultColumn
}

func (p *Pipeline) dropExtra() bool {
	return p.DropExtra == nil || *p.DropExtra
}

// sourcePath resolves a relative source against the pipeline file's directory.
func (p *Pipeline) sourcePath() string {
	if filepath.IsAbs(p.Source) || p.path == "" {
		return p.Source
	}
	return filepath.Join(filepath.Dir(p.path), p.Source)
}

// List returns pipeline files in dir sorted by name. A missing dir is empty.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pipelines dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
