package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/abelk/solarscope/internal/dataset"
)

// Matrix is a symmetric correlation matrix over a metric list.
type Matrix struct {
	Metrics []string
	Values  [][]float64
}

// Correlation computes the Pearson correlation for every metric pair using
// pairwise-complete observations: a row contributes to a cell only when
// both metrics are present in it. Cells with fewer than two complete pairs
// are NaN.
func Correlation(t *dataset.Table, metricNames []string) (*Matrix, error) {
	cols := make([][]float64, len(metricNames))
	for i, m := range metricNames {
		vals, ok := t.Column(m)
		if !ok {
			return nil, &dataset.ColumnNotFoundError{Column: m}
		}
		cols[i] = vals
	}

	m := &Matrix{
		Metrics: append([]string(nil), metricNames...),
		Values:  make([][]float64, len(metricNames)),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, len(metricNames))
		m.Values[i][i] = 1
	}

	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			r := pairwiseCorrelation(cols[i], cols[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

func pairwiseCorrelation(a, b []float64) float64 {
	var xs, ys []float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		xs = append(xs, a[i])
		ys = append(ys, b[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}
