// Package api exposes the dashboard's aggregation operations over HTTP.
// Every data endpoint loads the dataset through the memoised cache, so an
// unchanged set of source files is parsed once and a changed file is
// picked up on the next request.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abelk/solarscope/internal/dataset"
	"github.com/abelk/solarscope/internal/insights"
)

type Server struct {
	cache   *dataset.Cache
	sources []dataset.Source
	port    string
	gen     *insights.Generator
}

func NewServer(cache *dataset.Cache, sources []dataset.Source, port string) *Server {
	// Narrative generation is optional and needs an API key.
	var gen *insights.Generator
	if g, err := insights.NewGenerator(); err != nil {
		log.Printf("Insights disabled: %v", err)
	} else {
		gen = g
	}

	return &Server{
		cache:   cache,
		sources: sources,
		port:    port,
		gen:     gen,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/countries", s.handleCountries)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/compare", s.handleCompare)
	mux.HandleFunc("/api/anova", s.handleANOVA)
	mux.HandleFunc("/api/correlation", s.handleCorrelation)
	mux.HandleFunc("/api/windrose", s.handleWindRose)
	mux.HandleFunc("/api/outliers", s.handleOutliers)
	mux.HandleFunc("/api/series", s.handleSeries)
	mux.HandleFunc("/api/insights", s.handleInsights)
	mux.HandleFunc("/charts/timeseries", s.handleChartTimeSeries)
	mux.HandleFunc("/charts/histogram", s.handleChartHistogram)
	mux.HandleFunc("/charts/correlation", s.handleChartCorrelation)
	mux.HandleFunc("/charts/missing", s.handleChartMissing)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
