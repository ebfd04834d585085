// Package model fits one simple linear model per group and turns fitted
// models back into tables: one-row summaries (Glance), per-term
// coefficients (Tidy), and the data with fitted values and residuals
// (Augment).
package model

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/nestloom-cli/internal/table"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// InsufficientDataError indicates a group that cannot support a fit.
type InsufficientDataError struct {
	N      int
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("cannot fit model on %d complete rows: %s", e.N, e.Reason)
}

// Linear is an ordinary least squares fit of Y ~ X with an intercept.
type Linear struct {
	X, Y string

	Intercept   float64
	Slope       float64
	InterceptSE float64
	SlopeSE     float64

	RSquared    float64
	AdjRSquared float64
	Sigma       float64
	FStatistic  float64
	PValue      float64

	N  int // complete observations used
	DF int // residual degrees of freedom
}

// FitLinear fits y ~ x on the rows of t where both cells are non-null.
// At least three complete rows and some variation in x are required.
func FitLinear(t *table.Table, x, y string) (*Linear, error) {
	xs, xok, err := numeric(t, x)
	if err != nil {
		return nil, err
	}
	ys, yok, err := numeric(t, y)
	if err != nil {
		return nil, err
	}
	var px, py []float64
	for i := range xs {
		if xok[i] && yok[i] {
			px = append(px, xs[i])
			py = append(py, ys[i])
		}
	}
	n := len(px)
	if n < 3 {
		return nil, &InsufficientDataError{N: n, Reason: "need at least 3"}
	}

	xbar, xvar := stat.MeanVariance(px, nil)
	sxx := xvar * float64(n-1)
	if sxx == 0 {
		return nil, &InsufficientDataError{N: n, Reason: fmt.Sprintf("%q is constant", x)}
	}
	_, yvar := stat.MeanVariance(py, nil)
	syy := yvar * float64(n-1)

	m := &Linear{X: x, Y: y, N: n, DF: n - 2}
	m.Intercept, m.Slope = stat.LinearRegression(px, py, nil, false)
	var rss float64
	for i := range px {
		r := py[i] - m.Predict(px[i])
		rss += r * r
	}
	df := float64(m.DF)
	m.Sigma = math.Sqrt(rss / df)
	m.SlopeSE = m.Sigma / math.Sqrt(sxx)
	m.InterceptSE = m.Sigma * math.Sqrt(1/float64(n)+xbar*xbar/sxx)
	if syy > 0 {
		m.RSquared = stat.RSquared(px, py, nil, m.Intercept, m.Slope)
		m.AdjRSquared = 1 - (1-m.RSquared)*float64(n-1)/df
	} else {
		m.RSquared = math.NaN()
		m.AdjRSquared = math.NaN()
	}
	m.FStatistic = (syy - rss) / (rss / df)
	m.PValue = tPValue(m.Slope/m.SlopeSE, df)
	return m, nil
}

// Predict evaluates the fitted line at x.
func (m *Linear) Predict(x float64) float64 { return m.Intercept + m.Slope*x }

func (m *Linear) String() string { return fmt.Sprintf("lm %s ~ %s", m.Y, m.X) }

func numeric(t *table.Table, name string) ([]float64, []bool, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, nil, err
	}
	if k := c.Kind(); k != table.KindNumber && k != table.KindNull {
		return nil, nil, &table.KindMismatchError{Column: name, Row: -1, Want: table.KindNumber, Got: k}
	}
	vals, ok := c.Floats()
	return vals, ok, nil
}

// tPValue is the two-sided p-value of a t statistic with df degrees of
// freedom.
func tPValue(t, df float64) float64 {
	if math.IsNaN(t) {
		return math.NaN()
	}
	if math.IsInf(t, 0) {
		return 0
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return math.Min(1, 2*dist.Survival(math.Abs(t)))
}
