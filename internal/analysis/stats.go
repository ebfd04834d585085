package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/nestloom-cli/internal/table"
)

// correlationMatrix uses pairwise-complete observations.
func correlationMatrix(cols []*table.Column) *CorrMatrix {
	n := len(cols)
	names := make([]string, n)
	vals := make([][]float64, n)
	oks := make([][]bool, n)
	for i, c := range cols {
		names[i] = c.Name()
		vals[i], oks[i] = c.Floats()
	}
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			r := pearson(vals[a], oks[a], vals[b], oks[b])
			mat[a][b], mat[b][a] = r, r
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}
}

func pearson(xs []float64, xok []bool, ys []float64, yok []bool) float64 {
	var n, sx, sy, sxx, syy, sxy float64
	for i := range xs {
		if !xok[i] || !yok[i] {
			continue
		}
		x, y := xs[i], ys[i]
		n++
		sx += x
		sy += y
		sxx += x * x
		syy += y * y
		sxy += x * y
	}
	if n < 2 {
		return 0
	}
	denom := math.Sqrt((n*sxx - sx*sx) * (n*syy - sy*sy))
	if denom == 0 || math.IsNaN(denom) {
		return 0
	}
	r := (n*sxy - sx*sy) / denom
	return math.Max(-1, math.Min(1, r))
}

// topPairs lists the strongest off-diagonal pairs by |r|.
func topPairs(m *CorrMatrix, limit int) []PairCorr {
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	for i, v := range cp {
		cp[i] = math.Abs(v - median)
	}
	sort.Float64s(cp)
	return median, quantile(cp, 0.5)
}

func quantile(sorted []float64, q float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
