package loader

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

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

const xlsxFixtureBase64 = `
UEsDBBQAAAAIAMEwN1vYAxPv/wAAALYCAAATABwAW0NvbnRlbnRfVHlwZXNdLnhtbFVUCQADyjjSaMo40mh1eAsAAQQAAAAABAAAAAC1ks1OwzAQhO95CsvX
Kt60B4RQkh74OQKH8gDG3iRW/CfbLeHtcVIEEqIIpHJaWTOz32jlejsZTQ4YonK2oWtWUYJWOKls39Cn3V15SbdtUe9ePUaSvTY2dEjJXwFEMaDhkTmPNiud
C4an/Aw9eC5G3iNsquoChLMJbSrTvIO2BSH1DXZ8rxO5nbJyRAfUkZLro3fGNZR7r5XgKetwsPILqHyHsJxcPHFQPq6ygcIpyCyeZnxGH/JFgpJIHnlI99xk
I0waXlwYn50b2c97vunquk4JlE7sTY6w6ANyGQfEZDRbJjNc2dWvKiz+CMtYn7nLx/6/V9n8d5Ualm/YFm9QSwMECgAAAAAAxDA3WwAAAAAAAAAAAAAAAAMA
HAB4bC9VVAkAA9A40mjyONJodXgLAAEEAAAAAAQAAAAAUEsDBBQAAAAIAMQwN1tM2kS6xQAAAEkBAAAPABwAeGwvd29ya2Jvb2sueG1sVVQJAAPQONJo0DjS
aHV4CwABBAAAAAAEAAAAAI1Qu27DMAzc/RUC90aOhyIwZGcJAnhvP0CxaVuIRRqk+vj8qjEMZOjQ7Y7k3ZF05++4mE8UDUwNHA8lGKSeh0BTA+9v15cTnNvC
fbHcb8x3k8dJG5hTWmtrtZ8xej3wipQ7I0v0KVOZrK6CftAZMcXFVmX5aqMPBJtDLf/x4HEMPV64/4hIaTMRXHzKy+ocVoW2MMY9QvQX7sSQj9hANxELgnnU
uiHfB0bqkIF0wxHsH5KLT/5JUD0Jqk3g7J7n7P6WtvgBUEsDBAoAAAAAANIwN1sAAAAAAAAAAAAAAAAOABwAeGwvd29ya3NoZWV0cy9VVAkAA+s40mjyONJo
dXgLAAEEAAAAAAQAAAAAUEsDBBQAAAAIANIwN1u3fFZsqwIAAIASAAAYABwAeGwvd29ya3NoZWV0cy9zaGVldDIueG1sVVQJAAPrONJo6zjSaHV4CwABBAAA
AAAEAAAAAJ3YT26bQBiH4X1OgVilkguD/wEVJkoMzibKJukBJngMqGYGDeMkvVXP0JN1nEhVQ/r7QCxx/BDsV9/gIbl6bY7Os9BdreTGDTzmOkIWal/LcuN+
f9x9jdyr9CJ5UfpHVwlhHPt+2W3cypj2m+93RSUa3nmqFdL+5aB0w4091KXftVrw/Rtqjv6csbXf8Fq66YXjJG8vZ9zw85E91urF0fb/u+/H9pXifHwduI7Z
uLU81lI8GO2mSd2liUlvtTq1iW/SxD+/4Bcf3Q1yWyULIY3mxn5e57L0777gs2zRWR5F0zqXv3/tCJwh/FAoLbDLkbtTBT+K+1PzJDTmO/jJuRGl0j8xvUX0
Xpn/XHDi22gf8837+ebgjNdEOmTYbEWkQipkRCKEAjYjWA6Zxxgpd0jyY1txogxyh1p3ZlSaRT/NYkIaZNhsTaRBKgyINAgFAZkGMi8YSIPkUBrkOlEouR/V
Ztlvs5zQBhk7NtTcILaOiTgIxdSI5vAKvXigDZJPwlBpEDNVrceVWfXLrMApb4gyyLBZSIRBKiS+4gyhgFw8c8g8tqLLIDk0Ncgd1EmbalSbdb/NekIbZOyK
Rk0NYuGSiINQPIuINvAKvTii2yA5MDWIHerDyDJhv0w4oQwytgzxdW0RCxdEGYTs2MyJNJB5bE6nQXJobJDr6teRbaJ+m2jCvQYZu8oQ39cWMSpohlBETg28
Qi8amBokS940VBrkOvFsNxzj4sT9OPGEwUHG3m6oJQ2xkPhplyEUU7e2HF6hF4d0HCQHljTERF1WI9ME7NPWlE2YHIgW1OfeQhZTvwagom/qOXaDGxxIh1Y2
CGU9dnqCz08P0I6Wmh+I7J2H2uZAFxJrYgaVvfcQ+6McO4/R29cdpENLHIRmYIVL/H+e9yT+34dJ6cUfUEsDBBQAAAAIAMcwN1sqMey0swAAAPgAAAAYABwA
eGwvd29ya3NoZWV0cy9zaGVldDEueG1sVVQJAAPWONJo1jjSaHV4CwABBAAAAAAEAAAAAE2P3WrDMAxG7/MURverkl6MUhyXwegLrHsA46iNqf+QxbLHr5OO
0cvzSfoO0qffGNQPcfU5jTDselCUXJ58uo3wfTm/HeBkOr1kvteZSFTbT3WEWaQcEaubKdq6y4VSm1wzRysN+Ya1MNlpO4oB933/jtH6BKZTSm/xpxW7UmPO
i+Lmhye3xK38MYCSEXwKPtGXMBjtq9FiSrCO5hwmYo1iNK4xur82bHWbBl88Gv+fMN0DUEsDBAoAAAAAAMYwN1sAAAAAAAAAAAAAAAAJABwAeGwvX3JlbHMv
VVQJAAPTONJo8jjSaHV4CwABBAAAAAAEAAAAAFBLAwQUAAAACADGMDdbCmPblLYAAACtAQAAGgAcAHhsL19yZWxzL3dvcmtib29rLnhtbC5yZWxzVVQJAAPT
ONJo0zjSaHV4CwABBAAAAAAEAAAAAL2QSwrCMBBA9z1FmL2dtgsRadqNCN1KPUBIpx/aJiGJv9sbBMWCgitXw/zePCYvr/PEzmTdoBWHNE6AkZK6GVTH4Vjv
Vxsoiyg/0CR8GHH9YBwLO8px6L03W0Qne5qFi7UhFTqttrPwIbUdGiFH0RFmSbJG+86AImJsgWVVw8FWTQqsvhn6Ba/bdpC00/I0k/IfruBF29H1RD5Ahe3I
c3iVHD5CGgcq4Fef7M8+2dMnx8XXi+gOUEsDBAoAAAAAAMMwN1sAAAAAAAAAAAAAAAAGABwAX3JlbHMvVVQJAAPNONJo8jjSaHV4CwABBAAAAAAEAAAAAFBL
AwQUAAAACADDMDdbDxvLDKoAAAAcAQAACwAcAF9yZWxzLy5yZWxzVVQJAAPNONJozTjSaHV4CwABBAAAAAAEAAAAAI3PsQ6CMBAG4J2naG6XgoMxxsJiTFgN
PkAtRyHQXtNWxbe3oxgHx8v9913+Y72YmT3Qh5GsgDIvgKFV1I1WC7i2580e6io7XnCWMUXCMLrA0o0NAoYY3YHzoAY0MuTk0KZNT97ImEavuZNqkhr5tih2
3H8aUGWMrVjWdAJ805XA2pfDf3jq+1HhidTdoI0/vnwlkiy9xihgmfmT/HQjmvKEAk8d+apklb0BUEsBAh4DFAAAAAgAwTA3W9gDE+//AAAAtgIAABMAGAAA
AAAAAQAAAKSBAAAAAFtDb250ZW50X1R5cGVzXS54bWxVVAUAA8o40mh1eAsAAQQAAAAABAAAAABQSwECHgMKAAAAAADEMDdbAAAAAAAAAAAAAAAAAwAYAAAA
AAAAABAA7UFMAQAAeGwvVVQFAAPQONJodXgLAAEEAAAAAAQAAAAAUEsBAh4DFAAAAAgAxDA3W0zaRLrFAAAASQEAAA8AGAAAAAAAAQAAAKSBiQEAAHhsL3dv
cmtib29rLnhtbFVUBQAD0DjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAwoAAAAAANIwN1sAAAAAAAAAAAAAAAAOABgAAAAAAAAAEADtQZcCAAB4bC93b3Jrc2hl
ZXRzL1VUBQAD6zjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAxQAAAAIANIwN1u3fFZsqwIAAIASAAAYABgAAAAAAAEAAACkgd8CAAB4bC93b3Jrc2hlZXRzL3No
ZWV0Mi54bWxVVAUAA+s40mh1eAsAAQQAAAAABAAAAABQSwECHgMUAAAACADHMDdbKjHstLMAAAD4AAAAGAAYAAAAAAABAAAApIHcBQAAeGwvd29ya3NoZWV0
cy9zaGVldDEueG1sVVQFAAPWONJodXgLAAEEAAAAAAQAAAAAUEsBAh4DCgAAAAAAxjA3WwAAAAAAAAAAAAAAAAkAGAAAAAAAAAAQAO1B4QYAAHhsL19yZWxz
L1VUBQAD0zjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAxQAAAAIAMYwN1sKY9uUtgAAAK0BAAAaABgAAAAAAAEAAACkgSQHAAB4bC9fcmVscy93b3JrYm9vay54
bWwucmVsc1VUBQAD0zjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAwoAAAAAAMMwN1sAAAAAAAAAAAAAAAAGABgAAAAAAAAAEADtQS4IAABfcmVscy9VVAUAA804
0mh1eAsAAQQAAAAABAAAAABQSwECHgMUAAAACADDMDdbDxvLDKoAAAAcAQAACwAYAAAAAAABAAAApIFuCAAAX3JlbHMvLnJlbHNVVAUAA8040mh1eAsAAQQA
AAAABAAAAABQSwUGAAAAAAoACgBTAwAAXQkAAAAA
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeXLSXFixture(t *testing.T) string {
	t.Helper()
	raw := strings.ReplaceAll(strings.TrimSpace(xlsxFixtureBase64), "\n", "")
	data, err := base64.StdEncoding.DecodeString(raw)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "analysis_dataset.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func localeOptions() Options {
	opt := DefaultOptions()
	opt.DecimalSeparator = ','
	opt.ThousandsSeparator = '.'
	opt.SplitUnits = true
	return opt
}

func floats(t *testing.T, tb *table.Table, name string) []float64 {
	t.Helper()
	col, err := tb.Column(name)
	require.NoError(t, err)
	require.Equal(t, table.KindNumber, col.Kind(), "column %s", name)
	vals, _ := col.Floats()
	return vals
}

func assertMetrics(t *testing.T, tb *table.Table, rows int) {
	t.Helper()
	assert.Equal(t, []string{"Group", "Concentration", "Temp", "Score", "LocaleNumber", "Category", "Note"}, tb.Names())
	assert.Equal(t, rows, tb.NumRows())
	conc := floats(t, tb, "Concentration")
	assert.InDelta(t, 500, conc[0], 1e-9)
	assert.InDelta(t, 3000, conc[8], 1e-9)
	temp := floats(t, tb, "Temp")
	assert.InDelta(t, (70-32)*5.0/9.0, temp[0], 1e-9)
	score := floats(t, tb, "Score")
	assert.InDelta(t, 9.5, score[2], 1e-9)
	locale := floats(t, tb, "LocaleNumber")
	assert.InDelta(t, 900, locale[2], 1e-9)
	assert.InDelta(t, 1000, locale[0], 1e-9)
	cat, err := tb.Column("Category")
	require.NoError(t, err)
	assert.Equal(t, table.KindString, cat.Kind())
}

func TestLoadCSVLocaleAndUnits(t *testing.T) {
	path := writeFile(t, "metrics.csv", strings.Join(csvRows, "\n"))
	opt := localeOptions()
	opt.Delimiter = ';'
	tb, err := Load(path, opt)
	require.NoError(t, err)
	assertMetrics(t, tb, 10)

	opt.MaxRows = 9
	tb, err = Load(path, opt)
	require.NoError(t, err)
	assert.Equal(t, 9, tb.NumRows())
}

func TestLoadCSVKeepsUnitsInNamesByDefault(t *testing.T) {
	path := writeFile(t, "metrics.csv", strings.Join(csvRows, "\n"))
	opt := DefaultOptions()
	opt.Delimiter = ';'
	opt.DecimalSeparator = ','
	tb, err := Load(path, opt)
	require.NoError(t, err)
	assert.True(t, tb.Has("Concentration (g/L)"))
	conc := floats(t, tb, "Concentration (g/L)")
	assert.InDelta(t, 0.5, conc[0], 1e-9)
}

func TestReadCSVInference(t *testing.T) {
	src := "id,flag,score,label,,id\n1,true,1.5,x,a,7\n2,false,,y\n3,TRUE,2,,c,9\n"
	tb, err := ReadCSV(strings.NewReader(src), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "flag", "score", "label", "col5", "id_2"}, tb.Names())
	assert.Equal(t, 3, tb.NumRows())

	flag, _ := tb.Column("flag")
	assert.Equal(t, table.KindBool, flag.Kind())
	score, _ := tb.Cell("score", 1)
	assert.True(t, score.IsNull())
	label, _ := tb.Cell("label", 2)
	assert.True(t, label.IsNull())
	// ragged row padded with nulls
	pad, _ := tb.Cell("id_2", 1)
	assert.True(t, pad.IsNull())
	last, _ := tb.Cell("id_2", 2)
	assert.True(t, last.Equal(table.Number(9)))
}

func TestReadCSVEmptyAndTSV(t *testing.T) {
	tb, err := ReadCSV(strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, tb.NumColumns())

	path := writeFile(t, "x.tsv", "a\tb\n1\tz\n")
	tb, err = Load(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tb.Names())
	empty, err := ReadCSV(strings.NewReader("a,b\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.NumRows())
	assert.Equal(t, 2, empty.NumColumns())
}

func TestLoadXLSXBySheetNameAndIndex(t *testing.T) {
	path := writeXLSXFixture(t)
	opt := localeOptions()
	opt.SheetName = "Data"
	byName, err := Load(path, opt)
	require.NoError(t, err)
	assertMetrics(t, byName, 10)

	opt.SheetName = ""
	opt.SheetIndex = 2
	byIndex, err := Load(path, opt)
	require.NoError(t, err)
	assert.True(t, byName.Equal(byIndex))

	names, err := SheetNames(path)
	require.NoError(t, err)
	assert.Contains(t, names, "Data")

	opt.SheetName = "Missing"
	_, err = Load(path, opt)
	var snf *SheetNotFoundError
	require.ErrorAs(t, err, &snf)
	assert.Contains(t, snf.Available, "Data")
}

func TestReadJSON(t *testing.T) {
	src := `[
		{"country": "A", "year": 1952, "tags": ["x", "y"], "obs": [{"v": 1}, {"v": 2}]},
		{"year": 1957, "country": "B", "extra": true, "tags": [], "obs": null}
	]`
	tb, err := ReadJSON(strings.NewReader(src), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "year", "tags", "obs", "extra"}, tb.Names())
	assert.Equal(t, 2, tb.NumRows())

	tags, _ := tb.Column("tags")
	assert.Equal(t, table.KindVector, tags.Kind())
	obs, _ := tb.Column("obs")
	assert.Equal(t, table.KindTable, obs.Kind())
	first, _ := tb.Cell("obs", 0)
	assert.Equal(t, 2, first.Table().NumRows())
	extra, _ := tb.Cell("extra", 0)
	assert.True(t, extra.IsNull())

	_, err = ReadJSON(strings.NewReader(`{"a": 1}`), Options{})
	assert.Error(t, err)
	_, err = ReadJSON(strings.NewReader(`[{"a": 1}, {"a": "x"}]`), Options{})
	var km *table.KindMismatchError
	assert.ErrorAs(t, err, &km)
}

func TestLoadUnsupported(t *testing.T) {
	path := writeFile(t, "notes.docx", "x")
	_, err := Load(path, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), DefaultOptions())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseNumeric(t *testing.T) {
	cases := []struct {
		in   string
		opt  Options
		want float64
		ok   bool
	}{
		{"1.000,5", Options{}, 1000.5, true},
		{"1,000.5", Options{}, 1000.5, true},
		{"12%", Options{}, 12, true},
		{"1e3", Options{}, 1000, true},
		{"0,5", Options{DecimalSeparator: ','}, 0.5, true},
		{"NaN", Options{}, 0, false},
		{"abc", Options{}, 0, false},
		{"", Options{}, 0, false},
	}
	for _, c := range cases {
		got, ok := parseNumeric(c.in, c.opt)
		assert.Equal(t, c.ok, ok, c.in)
		if c.ok {
			assert.InDelta(t, c.want, got, 1e-9, c.in)
		}
	}
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet2.xml", "xl/worksheets/sheet2.xml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeRelPath(tt.in))
	}
	assert.Equal(t, 2, colIndexFromRef("C12"))
	assert.Equal(t, 27, colIndexFromRef("AB3"))
	assert.Equal(t, -1, colIndexFromRef(""))
}
