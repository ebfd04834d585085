package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/KaramelBytes/nestloom-cli/internal/analysis"
	"github.com/KaramelBytes/nestloom-cli/internal/config"
	"github.com/KaramelBytes/nestloom-cli/internal/loader"
	"github.com/KaramelBytes/nestloom-cli/internal/model"
	"github.com/KaramelBytes/nestloom-cli/internal/nest"
	"github.com/KaramelBytes/nestloom-cli/internal/table"
	"github.com/KaramelBytes/nestloom-cli/internal/utils"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

const runFileName = "run.json"

// RunOptions tunes a run without editing the pipeline file.
type RunOptions struct {
	// Loader options; the pipeline's delimiter and sheet take precedence.
	Loader loader.Options
	// Workers overrides the pipeline's worker count when > 0.
	Workers int
	// Logf receives progress lines; nil discards them.
	Logf func(format string, args ...any)
}

// Result is the outcome of one pipeline run.
type Result struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name"`
	Source     string                  `json:"source"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Rows       int                     `json:"rows"`
	Groups     int                     `json:"groups"`
	Outputs    []OutputInfo            `json:"outputs"`
	Tables     map[Output]*table.Table `json:"-"`
}

// OutputInfo describes one saved output table.
type OutputInfo struct {
	Name    Output `json:"name"`
	File    string `json:"file,omitempty"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// Run loads the source, nests by group, fits y ~ x per group, and derives
// each requested output. Cancellation is checked between stages.
func (p *Pipeline) Run(ctx context.Context, opt RunOptions) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	logf := opt.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	workers := p.Workers
	if opt.Workers > 0 {
		workers = opt.Workers
	}
	res := &Result{ID: uuid.NewString(), Name: p.Name, Source: p.sourcePath(), StartedAt: time.Now()}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lopt := opt.Loader
	if p.Delimiter != "" {
		lopt.Delimiter = config.Rune(p.Delimiter)
	}
	if p.Sheet != "" {
		lopt.SheetName = p.Sheet
	}
	data, err := loader.Load(res.Source, lopt)
	if err != nil {
		return nil, err
	}
	res.Rows = data.NumRows()
	logf("loaded %d rows × %d columns from %s", data.NumRows(), data.NumColumns(), filepath.Base(res.Source))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	col := p.nestColumn()
	nested, err := nest.NestInto(data, col, p.GroupBy...)
	if err != nil {
		return nil, err
	}
	res.Groups = nested.NumRows()
	logf("nested into %d groups", res.Groups)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fitted, err := model.FitEach(nested, col, p.Model.X, p.Model.Y, model.DefaultColumn, nest.WithWorkers(workers))
	if err != nil {
		return nil, fmt.Errorf("fit %s ~ %s: %w", p.Model.Y, p.Model.X, err)
	}
	logf("fitted %d models (%s ~ %s)", res.Groups, p.Model.Y, p.Model.X)

	tables := make([]*table.Table, len(p.Outputs))
	limit := workers
	if limit < 1 {
		limit = 1
	}
	wp := pool.New().WithMaxGoroutines(limit).WithContext(ctx)
	for i, o := range p.Outputs {
		wp.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := p.derive(fitted, o)
			if err != nil {
				return fmt.Errorf("output %s: %w", o, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := wp.Wait(); err != nil {
		return nil, err
	}
	res.Tables = make(map[Output]*table.Table, len(p.Outputs))
	for i, o := range p.Outputs {
		res.Tables[o] = tables[i]
		res.Outputs = append(res.Outputs, OutputInfo{Name: o, Rows: tables[i].NumRows(), Columns: tables[i].NumColumns()})
		logf("%s: %d rows", o, tables[i].NumRows())
	}
	res.FinishedAt = time.Now()
	return res, nil
}

// derive computes one output from the fitted table and flattens it.
func (p *Pipeline) derive(fitted *table.Table, o Output) (*table.Table, error) {
	col := p.nestColumn()
	into := string(o)
	var (
		t   *table.Table
		err error
	)
	switch o {
	case OutputGlance:
		t, err = model.GlanceEach(fitted, model.DefaultColumn, into)
	case OutputTidy:
		t, err = model.TidyEach(fitted, model.DefaultColumn, into)
	case OutputAugment:
		t, err = model.AugmentEach(fitted, model.DefaultColumn, col, into)
	case OutputResiduals:
		t, err = model.ResidualsEach(fitted, model.DefaultColumn, col, into, "resid")
	default:
		return nil, fmt.Errorf("%w: unknown output %q", ErrInvalid, o)
	}
	if err != nil {
		return nil, err
	}
	return nest.Unnest(t, []string{into}, nest.UnnestOptions{DropExtra: p.dropExtra()})
}

// Save writes run.json and one file per output under dir/<id>. Flat tables
// are written as CSV, tables with list columns as JSON.
func (r *Result) Save(dir string) (string, error) {
	runDir := filepath.Join(dir, r.ID)
	if err := utils.EnsureDir(runDir); err != nil {
		return "", fmt.Errorf("ensure dir: %w", err)
	}
	for i, info := range r.Outputs {
		t := r.Tables[info.Name]
		if t == nil {
			continue
		}
		var buf bytes.Buffer
		name := string(info.Name) + ".csv"
		err := analysis.WriteCSV(&buf, t)
		if errors.Is(err, analysis.ErrNotFlat) {
			buf.Reset()
			name = string(info.Name) + ".json"
			err = analysis.WriteJSON(&buf, t)
		}
		if err != nil {
			return "", err
		}
		if err := utils.SafeWriteFile(filepath.Join(runDir, name), buf.Bytes()); err != nil {
			return "", err
		}
		r.Outputs[i].File = name
	}
	meta, err := utils.PrettyJSON(r)
	if err != nil {
		return "", err
	}
	if err := utils.SafeWriteFile(filepath.Join(runDir, runFileName), meta); err != nil {
		return "", err
	}
	return runDir, nil
}

// LoadRun reads the run.json metadata from a run directory.
func LoadRun(runDir string) (*Result, error) {
	b, err := os.ReadFile(filepath.Join(runDir, runFileName))
	if err != nil {
		return nil, fmt.Errorf("read run: %w", err)
	}
	var r Result
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse run: %w", err)
	}
	return &r, nil
}

// ListRuns returns saved runs under dir, newest first. Directories without
// a readable run.json are skipped.
func ListRuns(dir string) ([]*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var runs []*Result
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		r, err := LoadRun(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs, nil
}
