package api

import (
	"math"
	"time"

	"github.com/abelk/solarscope/internal/dataset"
	"github.com/abelk/solarscope/internal/stats"
)

// JSON cannot carry NaN, so every statistic that can be missing is a
// *float64 that marshals to null.

type SummaryView struct {
	Column     string   `json:"column"`
	Count      int      `json:"count"`
	Mean       *float64 `json:"mean"`
	Std        *float64 `json:"std"`
	Min        *float64 `json:"min"`
	Q1         *float64 `json:"q1"`
	Median     *float64 `json:"median"`
	Q3         *float64 `json:"q3"`
	Max        *float64 `json:"max"`
	Missing    int      `json:"missing"`
	MissingPct float64  `json:"missing_pct"`
}

type ComparisonView struct {
	Metric  string   `json:"metric"`
	Country string   `json:"country"`
	Mean    *float64 `json:"mean"`
	Median  *float64 `json:"median"`
	Std     *float64 `json:"std"`
}

type ANOVAView struct {
	Metric       string   `json:"metric"`
	F            *float64 `json:"f"`
	P            *float64 `json:"p"`
	Groups       int      `json:"groups"`
	Observations int      `json:"observations"`
}

type MatrixView struct {
	Metrics []string     `json:"metrics"`
	Values  [][]*float64 `json:"values"`
}

type WindRoseView struct {
	Sectors   []string    `json:"sectors"`
	SpeedBins []string    `json:"speed_bins"`
	Freq      [][]float64 `json:"freq"`
	Samples   int         `json:"samples"`
}

type OutlierView struct {
	Columns   []string `json:"columns"`
	Rows      int      `json:"rows"`
	Flagged   int      `json:"flagged"`
	Remaining int      `json:"remaining"`
}

type SeriesPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

type SeriesView struct {
	Metric string                   `json:"metric"`
	Series map[string][]SeriesPoint `json:"series"`
}

type FileView struct {
	Country  string `json:"country"`
	Location string `json:"location"`
	Rows     int    `json:"rows"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

type HealthView struct {
	Status string     `json:"status"`
	Rows   int        `json:"rows,omitempty"`
	Files  []FileView `json:"files,omitempty"`
	Error  string     `json:"error,omitempty"`
}

func fp(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func summaryView(rows []stats.SummaryRow) []SummaryView {
	out := make([]SummaryView, len(rows))
	for i, r := range rows {
		out[i] = SummaryView{
			Column:     r.Column,
			Count:      r.Count,
			Mean:       fp(r.Mean),
			Std:        fp(r.Std),
			Min:        fp(r.Min),
			Q1:         fp(r.Q1),
			Median:     fp(r.Median),
			Q3:         fp(r.Q3),
			Max:        fp(r.Max),
			Missing:    r.Missing,
			MissingPct: r.MissingPct,
		}
	}
	return out
}

func comparisonView(rows []stats.ComparisonRow) []ComparisonView {
	out := make([]ComparisonView, len(rows))
	for i, r := range rows {
		out[i] = ComparisonView{
			Metric:  r.Metric,
			Country: r.Country,
			Mean:    fp(r.Mean),
			Median:  fp(r.Median),
			Std:     fp(r.Std),
		}
	}
	return out
}

func anovaView(r *stats.ANOVAResult) ANOVAView {
	return ANOVAView{
		Metric:       r.Metric,
		F:            fp(r.F),
		P:            fp(r.P),
		Groups:       r.Groups,
		Observations: r.Observations,
	}
}

func matrixView(m *stats.Matrix) MatrixView {
	values := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]*float64, len(row))
		for j, v := range row {
			values[i][j] = fp(v)
		}
	}
	return MatrixView{Metrics: m.Metrics, Values: values}
}

// maxSeriesPoints caps each country's series in the JSON payload; longer
// series are thinned by stride so their shape survives.
const maxSeriesPoints = 1000

func seriesView(t *dataset.Table, metric string) (*SeriesView, error) {
	vals, ok := t.Column(metric)
	if !ok {
		return nil, &dataset.ColumnNotFoundError{Column: metric}
	}
	series := make(map[string][]SeriesPoint)
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		c := t.CountryAt(i)
		series[c] = append(series[c], SeriesPoint{Time: t.TimestampAt(i), Value: v})
	}
	for c, pts := range series {
		series[c] = downsample(pts, maxSeriesPoints)
	}
	return &SeriesView{Metric: metric, Series: series}, nil
}

func downsample(pts []SeriesPoint, limit int) []SeriesPoint {
	if len(pts) <= limit {
		return pts
	}
	stride := (len(pts) + limit - 1) / limit
	out := make([]SeriesPoint, 0, limit)
	for i := 0; i < len(pts); i += stride {
		out = append(out, pts[i])
	}
	return out
}

func healthView(res *dataset.Result) HealthView {
	view := HealthView{
		Status: "ok",
		Rows:   res.Table.Len(),
		Files:  make([]FileView, len(res.Files)),
	}
	if res.Table.Len() == 0 {
		view.Status = "degraded"
	}
	for i, f := range res.Files {
		fv := FileView{
			Country:  f.Source.Country,
			Location: f.Source.Location,
			Rows:     f.Rows,
			Skipped:  f.SkippedRows,
		}
		if f.Err != nil {
			fv.Error = f.Err.Error()
			view.Status = "degraded"
		}
		view.Files[i] = fv
	}
	return view
}
