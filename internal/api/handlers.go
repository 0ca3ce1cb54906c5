package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abelk/solarscope/internal/chart"
	"github.com/abelk/solarscope/internal/dataset"
	"github.com/abelk/solarscope/internal/metrics"
	"github.com/abelk/solarscope/internal/stats"
)

// Defaults when no explicit column list is requested. Only the ones
// actually present in the loaded table are used.
var (
	defaultCompareMetrics = []string{"GHI", "DNI", "DHI"}
	defaultOutlierColumns = []string{"ModA", "ModB", "WS", "WSgust"}
)

var errNoData = errors.New("no observations loaded")

// loadTable loads the dataset through the cache and applies the optional
// countries filter. The unfiltered Result is returned alongside for
// handlers that need file reports.
func (s *Server) loadTable(r *http.Request) (*dataset.Result, *dataset.Table, error) {
	res, err := s.cache.Load(r.Context(), s.sources)
	if err != nil {
		return nil, nil, err
	}
	if res.Table.Len() == 0 {
		return res, nil, errNoData
	}

	tbl := res.Table
	if raw := r.URL.Query().Get("countries"); raw != "" {
		tbl = tbl.FilterCountries(splitList(raw)...)
		if tbl.Len() == 0 {
			return res, nil, errNoData
		}
	}
	return res, tbl, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// metricList resolves the metrics query parameter, falling back to the
// subset of defaults the table actually has, then to all columns.
func metricList(r *http.Request, tbl *dataset.Table, defaults []string) []string {
	if raw := r.URL.Query().Get("metrics"); raw != "" {
		return splitList(raw)
	}
	var present []string
	for _, m := range defaults {
		if tbl.HasColumn(m) {
			present = append(present, m)
		}
	}
	if len(present) > 0 {
		return present
	}
	return tbl.Columns()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var notFound *dataset.ColumnNotFoundError
	var fewGroups *stats.InsufficientGroupsError
	var fewObs *stats.InsufficientObservationsError
	switch {
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &fewGroups), errors.As(err, &fewObs):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, errNoData):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.AggregationOps.WithLabelValues(op, status).Inc()
	metrics.AggregationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	res, err := s.cache.Load(r.Context(), s.sources)
	if err != nil {
		writeJSON(w, HealthView{Status: "error", Error: err.Error()})
		return
	}
	writeJSON(w, healthView(res))
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	_, tbl, err := s.loadTable(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string][]string{"countries": tbl.Countries()})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	_, tbl, err := s.loadTable(r)
	defer func() { observe("summary", start, err) }()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, summaryView(stats.Summarize(tbl)))
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	_, tbl, err := s.loadTable(r)
	defer func() { observe("compare", start, err) }()
	if err != nil {
		writeError(w, err)
		return
	}

	rows, err := stats.Compare(tbl, metricList(r, tbl, defaultCompareMetrics))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, comparisonView(rows))
}

func (s *Server) handleANOVA(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	_, tbl, err := s.loadTable(r)
	defer func() { observe("anova", start, err) }()
	if err != nil {
		writeError(w, err)
		return
	}

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "GHI"
	}
	res, err := stats.OneWayANOVA(tbl, metric)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, anovaView(res))
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	_, tbl, err := s.loadTable(r)
	defer func() { observe("correlation", start, err) }()
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := stats.Correlation(tbl, metricList(r, tbl, nil))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, matrixView(m))
}

func (s *Server) handleWindRose(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	_, tbl, err := s.loadTable(r)
	defer func() { observe("windrose", start, err) }()
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	speed, dir := q.Get("speed"), q.Get("dir")
	if speed == "" {
		speed = "WS"
	}
	if dir == "" {
		dir = "WD"
	}
	sectors := 0
	if raw := q.Get("sectors"); raw != "" {
		sectors, _ = strconv.Atoi(raw)
	}

	rose, err := stats.WindRose(tbl, speed, dir, sectors)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, WindRoseView{
		Sectors:   rose.Sectors,
		SpeedBins: rose.SpeedBins,
		Freq:      rose.Freq,
		Samples:   rose.Samples,
	})
}

func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	_, tbl, err := s.loadTable(r)
	defer func() { observe("outliers", start, err) }()
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	columns := metricList(r, tbl, defaultOutlierColumns)
	if raw := q.Get("columns"); raw != "" {
		columns = splitList(raw)
	}
	threshold := 0.0
	if raw := q.Get("threshold"); raw != "" {
		threshold, _ = strconv.ParseFloat(raw, 64)
	}

	res, err := stats.FlagOutliers(tbl, columns, threshold)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, OutlierView{
		Columns:   columns,
		Rows:      tbl.Len(),
		Flagged:   res.Flagged,
		Remaining: res.Cleaned.Len(),
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	_, tbl, err := s.loadTable(r)
	defer func() { observe("series", start, err) }()
	if err != nil {
		writeError(w, err)
		return
	}

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "GHI"
	}
	view, err := seriesView(tbl, metric)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if s.gen == nil {
		http.Error(w, "insights disabled: no API key configured", http.StatusServiceUnavailable)
		return
	}

	res, tbl, err := s.loadTable(r)
	if err != nil {
		writeError(w, err)
		return
	}

	comparison, err := stats.Compare(tbl, metricList(r, tbl, defaultCompareMetrics))
	if err != nil {
		writeError(w, err)
		return
	}
	text, err := s.gen.Narrative(r.Context(), res.Fingerprint, stats.Summarize(tbl), comparison)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"narrative": text})
}

func (s *Server) handleChartTimeSeries(w http.ResponseWriter, r *http.Request) {
	_, tbl, err := s.loadTable(r)
	if err != nil {
		writeError(w, err)
		return
	}
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "GHI"
	}
	s.servePNG(w, func() ([]byte, error) { return chart.TimeSeries(tbl, metric) })
}

func (s *Server) handleChartHistogram(w http.ResponseWriter, r *http.Request) {
	_, tbl, err := s.loadTable(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	column := q.Get("column")
	if column == "" {
		column = "GHI"
	}
	bins := 0
	if raw := q.Get("bins"); raw != "" {
		bins, _ = strconv.Atoi(raw)
	}
	s.servePNG(w, func() ([]byte, error) { return chart.Histogram(tbl, column, bins) })
}

func (s *Server) handleChartCorrelation(w http.ResponseWriter, r *http.Request) {
	_, tbl, err := s.loadTable(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.servePNG(w, func() ([]byte, error) {
		m, err := stats.Correlation(tbl, metricList(r, tbl, nil))
		if err != nil {
			return nil, err
		}
		return chart.CorrelationHeatMap(m)
	})
}

func (s *Server) handleChartMissing(w http.ResponseWriter, r *http.Request) {
	_, tbl, err := s.loadTable(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.servePNG(w, func() ([]byte, error) { return chart.MissingMap(tbl) })
}

func (s *Server) servePNG(w http.ResponseWriter, render func() ([]byte, error)) {
	png, err := render()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(png)
}
