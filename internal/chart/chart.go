// Package chart renders the dashboard's server-side PNG figures. Only
// validity is promised here: a valid table and metric produce a PNG,
// a missing column is an error. Cosmetics are not part of the contract.
package chart

import (
	"bytes"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/abelk/solarscope/internal/dataset"
	"github.com/abelk/solarscope/internal/stats"
)

const defaultHistogramBins = 40

// TimeSeries renders one line per country for the given metric.
func TimeSeries(t *dataset.Table, metric string) ([]byte, error) {
	vals, ok := t.Column(metric)
	if !ok {
		return nil, &dataset.ColumnNotFoundError{Column: metric}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s over time", metric)
	p.X.Label.Text = "Time"
	p.Y.Label.Text = metric
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}

	byCountry := make(map[string]plotter.XYs)
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		c := t.CountryAt(i)
		byCountry[c] = append(byCountry[c], plotter.XY{
			X: float64(t.TimestampAt(i).Unix()),
			Y: v,
		})
	}

	for i, country := range t.Countries() {
		pts, ok := byCountry[country]
		if !ok {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("build line for %s: %w", country, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(country, line)
	}
	p.Add(plotter.NewGrid())

	return encode(p, 9*vg.Inch, 4*vg.Inch)
}

// Histogram renders the distribution of one column's non-missing values.
func Histogram(t *dataset.Table, column string, bins int) ([]byte, error) {
	vals, ok := t.Column(column)
	if !ok {
		return nil, &dataset.ColumnNotFoundError{Column: column}
	}
	if bins <= 0 {
		bins = defaultHistogramBins
	}

	var present plotter.Values
	for _, v := range vals {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("histogram of %q: no non-missing values", column)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Distribution of %s", column)
	p.X.Label.Text = column
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(present, bins)
	if err != nil {
		return nil, fmt.Errorf("build histogram: %w", err)
	}
	p.Add(h)

	return encode(p, 6*vg.Inch, 4*vg.Inch)
}

// corrGrid adapts a correlation matrix to the heat map's grid interface.
// NaN cells render as zero.
type corrGrid struct {
	m *stats.Matrix
}

func (g corrGrid) Dims() (int, int) { return len(g.m.Metrics), len(g.m.Metrics) }
func (g corrGrid) X(c int) float64  { return float64(c) }
func (g corrGrid) Y(r int) float64  { return float64(r) }

func (g corrGrid) Z(c, r int) float64 {
	v := g.m.Values[r][c]
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// CorrelationHeatMap renders a metric-by-metric correlation matrix.
func CorrelationHeatMap(m *stats.Matrix) ([]byte, error) {
	if len(m.Metrics) == 0 {
		return nil, fmt.Errorf("heat map: empty matrix")
	}

	p := plot.New()
	p.Title.Text = "Correlation matrix"
	p.NominalX(m.Metrics...)
	p.NominalY(m.Metrics...)

	hm := plotter.NewHeatMap(corrGrid{m: m}, palette.Heat(12, 1))
	hm.Min, hm.Max = -1, 1
	p.Add(hm)

	return encode(p, 6*vg.Inch, 4*vg.Inch)
}

// missingGrid buckets the table's rows and reports the missing fraction
// per (bucket, column) cell.
type missingGrid struct {
	cols []string
	frac [][]float64
}

func (g missingGrid) Dims() (int, int) { return len(g.cols), len(g.frac) }
func (g missingGrid) X(c int) float64  { return float64(c) }
func (g missingGrid) Y(r int) float64  { return float64(r) }
func (g missingGrid) Z(c, r int) float64 {
	return g.frac[r][c]
}

const missingMapBuckets = 200

// MissingMap renders where in the table values are missing: columns on the
// X axis, row position bucketed on the Y axis, cell shade the fraction of
// missing cells in that bucket.
func MissingMap(t *dataset.Table) ([]byte, error) {
	cols := t.Columns()
	rows := t.Len()
	if len(cols) == 0 || rows == 0 {
		return nil, fmt.Errorf("missing map: empty table")
	}

	buckets := missingMapBuckets
	if rows < buckets {
		buckets = rows
	}
	size := (rows + buckets - 1) / buckets
	// Recompute so the last bucket is never empty.
	buckets = (rows + size - 1) / size

	grid := missingGrid{cols: cols, frac: make([][]float64, buckets)}
	for b := range grid.frac {
		grid.frac[b] = make([]float64, len(cols))
	}
	for ci, name := range cols {
		vals, _ := t.Column(name)
		for i, v := range vals {
			if math.IsNaN(v) {
				grid.frac[i/size][ci]++
			}
		}
	}
	for b := range grid.frac {
		lo := b * size
		hi := lo + size
		if hi > rows {
			hi = rows
		}
		for ci := range grid.frac[b] {
			grid.frac[b][ci] /= float64(hi - lo)
		}
	}

	p := plot.New()
	p.Title.Text = "Missing values"
	p.Y.Label.Text = "Row position"
	p.NominalX(cols...)

	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	hm.Min, hm.Max = 0, 1
	p.Add(hm)

	return encode(p, 6*vg.Inch, 4*vg.Inch)
}

func encode(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write png: %w", err)
	}
	return buf.Bytes(), nil
}
