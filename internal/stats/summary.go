// Package stats implements the read-only aggregation operations over an
// observation table: per-column descriptive summaries, per-country
// comparisons, a one-way ANOVA significance test, correlation matrices,
// z-score outlier flagging and wind-rose frequency tables. Every operation
// is pure: same table and parameters, same output.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/abelk/solarscope/internal/dataset"
)

// SummaryRow holds descriptive statistics for one column. Mean, Std and
// the quantiles are NaN when the column has too few non-missing values;
// that is a representable degenerate result, not an error.
type SummaryRow struct {
	Column     string
	Count      int
	Mean       float64
	Std        float64
	Min        float64
	Q1         float64
	Median     float64
	Q3         float64
	Max        float64
	Missing    int
	MissingPct float64
}

// Summarize computes one SummaryRow per column, in column order.
// MissingPct is 100*missing/rows rounded to two decimals.
func Summarize(t *dataset.Table) []SummaryRow {
	rows := t.Len()
	out := make([]SummaryRow, 0, len(t.Columns()))

	for _, name := range t.Columns() {
		vals, _ := t.Column(name)
		present := dropMissing(vals)

		row := SummaryRow{
			Column:  name,
			Count:   len(present),
			Missing: rows - len(present),
		}
		if rows > 0 {
			pct := 100 * float64(row.Missing) / float64(rows)
			row.MissingPct = math.Round(pct*100) / 100
		}

		row.Mean = meanOf(present)
		row.Std = stdOf(present)
		if len(present) == 0 {
			nan := math.NaN()
			row.Min, row.Q1, row.Median, row.Q3, row.Max = nan, nan, nan, nan, nan
		} else {
			sorted := append([]float64(nil), present...)
			sort.Float64s(sorted)
			row.Min = sorted[0]
			row.Max = sorted[len(sorted)-1]
			row.Q1 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
			row.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
			row.Q3 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
		}
		out = append(out, row)
	}
	return out
}

func dropMissing(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// stdOf is the sample standard deviation; NaN below two observations.
func stdOf(vals []float64) float64 {
	if len(vals) < 2 {
		return math.NaN()
	}
	return stat.StdDev(vals, nil)
}

func medianOf(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
