package analysis

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/nestloom-cli/internal/loader"
	"github.com/KaramelBytes/nestloom-cli/internal/nest"
	"github.com/KaramelBytes/nestloom-cli/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var csvRows = []string{
	"Group;Concentration (g/L);Temp (°F);Score;LocaleNumber;Category;Note",
	"A;0,5;70;10,0;1.000,0;alpha;first",
	"A;0,6;71;11,0;1.100,0;alpha;second",
	"A;0,55;69;9,5;0.900,0;beta;third",
	"B;0,7;75;10,5;1.050,0;alpha;fourth",
	"B;0,65;74;9,8;0.980,0;beta;fifth",
	"B;0,68;73;10,2;1.020,0;alpha;sixth",
	"A;0,52;68;8,8;0.880,0;gamma;seventh",
	"B;0,75;76;9,7;0.970,0;beta;eighth",
	"A;3,0;95;50,0;5.000,0;alpha;ninth",
	"B;0,66;72;10,1;1.010,0;gamma;tenth",
}

var (
	score  = []float64{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50, 10.1}
	locale = []float64{1000, 1100, 900, 1050, 980, 1020, 880, 970, 5000, 1010}
)

func metrics(t *testing.T) *table.Table {
	t.Helper()
	opt := loader.DefaultOptions()
	opt.Delimiter = ';'
	opt.DecimalSeparator = ','
	opt.ThousandsSeparator = '.'
	opt.SplitUnits = true
	tb, err := loader.ReadCSV(strings.NewReader(strings.Join(csvRows, "\n")), opt)
	require.NoError(t, err)
	return tb
}

func subset(vals []float64, idxs []int) []float64 {
	out := make([]float64, len(idxs))
	for i, j := range idxs {
		out[i] = vals[j]
	}
	return out
}

func mean(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}

func correlation(a, b []float64) float64 {
	ma, mb := mean(a), mean(b)
	var num, da, db float64
	for i := range a {
		num += (a[i] - ma) * (b[i] - mb)
		da += (a[i] - ma) * (a[i] - ma)
		db += (b[i] - mb) * (b[i] - mb)
	}
	return num / math.Sqrt(da*db)
}

func column(t *testing.T, rep *Report, name string) ColumnSummary {
	t.Helper()
	for _, c := range rep.Cols {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %q not found", name)
	return ColumnSummary{}
}

func TestSummarizeAndMarkdown(t *testing.T) {
	opt := DefaultOptions()
	opt.Name = "metrics.csv"
	opt.SampleRows = 3
	opt.GroupBy = []string{"Group"}
	opt.Correlations = true
	opt.CorrPerGroup = true

	rep, err := Summarize(metrics(t), opt)
	require.NoError(t, err)
	assert.Equal(t, 10, rep.Rows)
	require.Len(t, rep.Samples, 3)
	assert.Equal(t, []string{"A", "500", "21.11111111111111", "10", "1000", "alpha", "first"}, rep.Samples[0])

	sc := column(t, rep, "Score")
	assert.Equal(t, "numeric", sc.Kind)
	assert.InDelta(t, mean(score), sc.Mean, 1e-9)
	assert.Equal(t, 8.8, sc.Min)
	assert.Equal(t, 50.0, sc.Max)
	assert.Equal(t, 1, sc.OutliersCount)
	assert.Equal(t, 3.5, sc.OutlierThreshold)

	cat := column(t, rep, "Category")
	assert.Equal(t, "categorical", cat.Kind)
	require.NotEmpty(t, cat.TopValues)
	assert.Equal(t, CategoryCount{Value: "alpha", Count: 5}, cat.TopValues[0])
	assert.Equal(t, 3, cat.Unique)

	require.Len(t, rep.Groups, 2)
	assert.Equal(t, "Group=A", rep.Groups[0].Key)
	assert.Equal(t, 5, rep.Groups[0].Size)
	assert.Equal(t, "Group=B", rep.Groups[1].Key)
	idxA := []int{0, 1, 2, 6, 8}
	assert.InDelta(t, mean(subset(score, idxA)), rep.Groups[0].Metrics["Score"].Mean, 1e-9)

	require.NotNil(t, rep.Corr)
	assert.Equal(t, []string{"Concentration", "Temp", "Score", "LocaleNumber"}, rep.Corr.Columns)
	assert.InDelta(t, correlation(score, locale), rep.Corr.Values[2][3], 1e-9)
	require.NotEmpty(t, rep.Groups[0].CorrPairs)

	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: metrics.csv",
		"Rows: 10",
		"- Concentration: numeric",
		"outliers: 1 above |z|>3.5",
		"[GROUP-BY SUMMARY]",
		"Group=A (n=5)",
		"[PER-GROUP CORRELATIONS]",
		"[CORRELATIONS]",
		"Score ~ LocaleNumber",
		"[HEAD]",
	} {
		assert.Contains(t, md, want)
	}
}

func TestSummarizeNestedAndEmptyColumns(t *testing.T) {
	nested, err := nest.Nest(metrics(t), "Group")
	require.NoError(t, err)
	empty, err := table.NewColumnOf("blank", table.KindString, make([]table.Value, nested.NumRows()))
	require.NoError(t, err)
	nested, err = nested.WithColumn(empty)
	require.NoError(t, err)

	rep, err := Summarize(nested, DefaultOptions())
	require.NoError(t, err)
	data := column(t, rep, "data")
	assert.Equal(t, "table", data.Kind)
	assert.Equal(t, 5, data.MinLen)
	assert.Equal(t, 5, data.MaxLen)
	assert.Equal(t, "empty", column(t, rep, "blank").Kind)
	assert.Contains(t, rep.Markdown(), "length 5..5")
	assert.Len(t, rep.Warnings, 1)
}

func TestSummarizeGroupByUnknownColumn(t *testing.T) {
	opt := DefaultOptions()
	opt.GroupBy = []string{"nope"}
	_, err := Summarize(metrics(t), opt)
	var uc *table.UnknownColumnError
	require.ErrorAs(t, err, &uc)
}

func TestMarkdownTable(t *testing.T) {
	nested, err := nest.Nest(metrics(t), "Group")
	require.NoError(t, err)
	md := Markdown(nested, 0)
	assert.Contains(t, md, "| Group | data |")
	assert.Contains(t, md, "| A | <table [5 × 6]> |")

	limited := Markdown(metrics(t), 2)
	assert.Contains(t, limited, "… 8 more rows")
	assert.Equal(t, 2+2+2, strings.Count(limited, "\n"))
}

func TestWriteCSV(t *testing.T) {
	xs, err := table.NewColumn("x", []table.Value{table.Number(1.5), table.Null()})
	require.NoError(t, err)
	tb, err := table.New(table.StringColumn("name", "a,b", "c"), xs)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tb))
	assert.Equal(t, "name,x\n\"a,b\",1.5\nc,\n", buf.String())

	nested, err := nest.Nest(tb, "name")
	require.NoError(t, err)
	err = WriteCSV(&bytes.Buffer{}, nested)
	assert.ErrorIs(t, err, ErrNotFlat)
}

func TestWriteJSON(t *testing.T) {
	tb, err := table.New(table.StringColumn("k", "a"), table.NumberColumn("v", 2))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, tb))
	assert.JSONEq(t, `[{"k":"a","v":2}]`, buf.String())
}
