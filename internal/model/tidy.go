package model

import (
	"math"

	"github.com/KaramelBytes/nestloom-cli/internal/table"
)

// Column names produced by Augment.
const (
	FittedColumn   = ".fitted"
	ResidualColumn = ".resid"
)

// num maps NaN to null so undefined statistics render as missing.
func num(f float64) table.Value {
	if math.IsNaN(f) {
		return table.Null()
	}
	return table.Number(f)
}

// Glance summarizes a fit as a single row.
func Glance(m *Linear) (*table.Table, error) {
	b := table.NewBuilder("r_squared", "adj_r_squared", "sigma", "statistic", "p_value", "df", "df_residual", "nobs")
	if err := b.Append(
		num(m.RSquared), num(m.AdjRSquared), num(m.Sigma), num(m.FStatistic), num(m.PValue),
		table.Number(1), table.Number(float64(m.DF)), table.Number(float64(m.N)),
	); err != nil {
		return nil, err
	}
	return b.Build()
}

// Tidy lists one row per coefficient.
func Tidy(m *Linear) (*table.Table, error) {
	df := float64(m.DF)
	b := table.NewBuilder("term", "estimate", "std_error", "statistic", "p_value")
	rows := []struct {
		term    string
		est, se float64
	}{
		{"(Intercept)", m.Intercept, m.InterceptSE},
		{m.X, m.Slope, m.SlopeSE},
	}
	for _, r := range rows {
		stat := r.est / r.se
		if err := b.Append(table.String(r.term), num(r.est), num(r.se), num(stat), num(tPValue(stat, df))); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// Augment returns data with fitted values and residuals appended.
func Augment(m *Linear, data *table.Table) (*table.Table, error) {
	out, err := AddPredictions(data, m, FittedColumn)
	if err != nil {
		return nil, err
	}
	return AddResiduals(out, m, ResidualColumn)
}

// AddPredictions adds the model's prediction for every row; rows with a
// null predictor get null.
func AddPredictions(data *table.Table, m *Linear, name string) (*table.Table, error) {
	xs, xok, err := numeric(data, m.X)
	if err != nil {
		return nil, err
	}
	vals := make([]table.Value, len(xs))
	for i := range xs {
		if xok[i] {
			vals[i] = table.Number(m.Predict(xs[i]))
		}
	}
	col, err := table.NewColumnOf(name, table.KindNumber, vals)
	if err != nil {
		return nil, err
	}
	return data.WithColumn(col)
}

// AddResiduals adds observed minus predicted for every complete row.
func AddResiduals(data *table.Table, m *Linear, name string) (*table.Table, error) {
	xs, xok, err := numeric(data, m.X)
	if err != nil {
		return nil, err
	}
	ys, yok, err := numeric(data, m.Y)
	if err != nil {
		return nil, err
	}
	vals := make([]table.Value, len(xs))
	for i := range xs {
		if xok[i] && yok[i] {
			vals[i] = table.Number(ys[i] - m.Predict(xs[i]))
		}
	}
	col, err := table.NewColumnOf(name, table.KindNumber, vals)
	if err != nil {
		return nil, err
	}
	return data.WithColumn(col)
}
