package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/nestloom-cli/internal/nest"
	"github.com/KaramelBytes/nestloom-cli/internal/table"
)

// Options controls Summarize.
type Options struct {
	// Name labels the report, usually the source file name.
	Name string
	// SampleRows determines how many leading rows to include in the report.
	SampleRows int
	// GroupBy computes per-group numeric summaries for the given key columns.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// CorrPerGroup lists the strongest correlation pairs within each group.
	CorrPerGroup bool
	// Outlier detection via robust Z-score (MAD).
	Outliers         bool
	OutlierThreshold float64
	// MaxGroups caps the groups kept in the report; 0 means 20.
	MaxGroups int
}

// DefaultOptions returns reasonable defaults for table summaries.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Report is a markdown-friendly summary of a table.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
	Groups   []GroupResult
	Corr     *CorrMatrix
}

// ColumnSummary captures the kind and statistics of one column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|bool|categorical|text|table|vector|handle|empty
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical and text
	TopValues    []CategoryCount
	ExampleTexts []string
	// List columns: min and max element count
	MinLen, MaxLen int
}

// CategoryCount is a value with its frequency.
type CategoryCount struct {
	Value string
	Count int
}

// GroupResult holds per-group numeric summaries.
type GroupResult struct {
	Key       string
	Size      int
	Metrics   map[string]NumSummary
	CorrPairs []PairCorr
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Summarize computes a Report for t.
func Summarize(t *table.Table, opt Options) (*Report, error) {
	rep := &Report{Name: opt.Name, Rows: t.NumRows()}
	var numCols []*table.Column
	for _, c := range t.Columns() {
		s := summarizeColumn(c, opt)
		if s.Kind == "numeric" {
			numCols = append(numCols, c)
		}
		rep.Cols = append(rep.Cols, s)
	}
	for i := 0; i < t.NumRows() && i < opt.SampleRows; i++ {
		row := t.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			if !v.IsNull() {
				cells[j] = v.String()
			}
		}
		rep.Samples = append(rep.Samples, cells)
	}
	if opt.Correlations && len(numCols) >= 2 {
		rep.Corr = correlationMatrix(numCols)
	}
	if len(opt.GroupBy) > 0 {
		groups, err := summarizeGroups(t, opt)
		if err != nil {
			return nil, err
		}
		rep.Groups = groups
	}
	for _, c := range rep.Cols {
		if c.Kind == "empty" && c.Missing > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %q has no values", c.Name))
		}
	}
	return rep, nil
}

func summarizeColumn(c *table.Column, opt Options) ColumnSummary {
	s := ColumnSummary{Name: c.Name()}
	for i := 0; i < c.Len(); i++ {
		if c.Value(i).IsNull() {
			s.Missing++
		} else {
			s.NonNull++
		}
	}
	if s.NonNull == 0 {
		s.Kind = "empty"
		return s
	}
	switch c.Kind() {
	case table.KindNumber:
		s.Kind = "numeric"
		numericStats(&s, c, opt)
	case table.KindBool:
		s.Kind = "bool"
		s.TopValues, s.Unique = topValues(c, 2)
	case table.KindString:
		long := 0
		for i := 0; i < c.Len(); i++ {
			if str, ok := c.Value(i).Str(); ok && len(str) > 64 {
				long++
				if len(s.ExampleTexts) < 3 {
					s.ExampleTexts = append(s.ExampleTexts, str)
				}
			}
		}
		if long == s.NonNull {
			s.Kind = "text"
			break
		}
		s.Kind = "categorical"
		s.ExampleTexts = nil
		s.TopValues, s.Unique = topValues(c, 8)
	case table.KindTable, table.KindVector:
		s.Kind = c.Kind().String()
		s.MinLen, s.MaxLen = math.MaxInt, 0
		for i := 0; i < c.Len(); i++ {
			v := c.Value(i)
			if v.IsNull() {
				continue
			}
			s.MinLen = min(s.MinLen, v.Len())
			s.MaxLen = max(s.MaxLen, v.Len())
		}
	default:
		s.Kind = c.Kind().String()
	}
	return s
}

func numericStats(s *ColumnSummary, c *table.Column, opt Options) {
	vals, ok := c.Floats()
	xs := make([]float64, 0, len(vals))
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	var mean, m2 float64
	for i, x := range vals {
		if !ok[i] {
			continue
		}
		xs = append(xs, x)
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
		delta := x - mean
		mean += delta / float64(len(xs))
		m2 += delta * (x - mean)
	}
	s.Mean = mean
	if len(xs) > 1 {
		s.Std = math.Sqrt(m2 / float64(len(xs)-1))
	}
	if !opt.Outliers || len(xs) < 8 {
		return
	}
	thr := opt.OutlierThreshold
	if thr <= 0 {
		thr = 3.5
	}
	s.OutlierThreshold = thr
	median, mad := medianMAD(xs)
	if mad == 0 {
		return
	}
	for _, x := range xs {
		az := math.Abs(0.6745 * (x - median) / mad)
		if az > thr {
			s.OutliersCount++
		}
		s.OutliersMaxAbsZ = math.Max(s.OutliersMaxAbsZ, az)
	}
}

func topValues(c *table.Column, limit int) ([]CategoryCount, int) {
	counts := map[string]int{}
	for i := 0; i < c.Len(); i++ {
		v := c.Value(i)
		if !v.IsNull() {
			counts[v.String()]++
		}
	}
	tops := make([]CategoryCount, 0, len(counts))
	for k, n := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: n})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops, len(counts)
}

// summarizeGroups nests t by the group keys and summarizes numeric columns
// of each sub-table.
func summarizeGroups(t *table.Table, opt Options) ([]GroupResult, error) {
	nested, err := nest.Nest(t, opt.GroupBy...)
	if err != nil {
		return nil, fmt.Errorf("group by: %w", err)
	}
	data, err := nested.Column(nest.DefaultColumn)
	if err != nil {
		return nil, err
	}
	out := make([]GroupResult, 0, nested.NumRows())
	for r := 0; r < nested.NumRows(); r++ {
		parts := make([]string, len(opt.GroupBy))
		for i, k := range opt.GroupBy {
			v, _ := nested.Cell(k, r)
			parts[i] = fmt.Sprintf("%s=%s", k, safeVal(v.String()))
		}
		sub := data.Value(r).Table()
		gr := GroupResult{Key: strings.Join(parts, " | "), Size: sub.NumRows(), Metrics: map[string]NumSummary{}}
		var numCols []*table.Column
		for _, c := range sub.Columns() {
			if c.Kind() != table.KindNumber {
				continue
			}
			vals, ok := c.Floats()
			ns := NumSummary{Min: math.Inf(1), Max: math.Inf(-1)}
			var sum float64
			for i, x := range vals {
				if !ok[i] {
					continue
				}
				ns.Count++
				sum += x
				ns.Min = math.Min(ns.Min, x)
				ns.Max = math.Max(ns.Max, x)
			}
			if ns.Count == 0 {
				continue
			}
			ns.Mean = sum / float64(ns.Count)
			gr.Metrics[c.Name()] = ns
			numCols = append(numCols, c)
		}
		if opt.CorrPerGroup && len(numCols) >= 2 {
			gr.CorrPairs = topPairs(correlationMatrix(numCols), 10)
		}
		out = append(out, gr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	limit := opt.MaxGroups
	if limit <= 0 {
		limit = 20
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
