package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SourceFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarscope_source_files_total",
			Help: "Source CSV files processed, by country and outcome",
		},
		[]string{"country", "status"},
	)

	RowsLoaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solarscope_rows_loaded_total",
			Help: "Total observation rows loaded into the merged table",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarscope_dataset_cache_lookups_total",
			Help: "Dataset cache lookups by result",
		},
		[]string{"result"},
	)

	AggregationOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarscope_aggregation_ops_total",
			Help: "Aggregation operations served, by operation and status",
		},
		[]string{"op", "status"},
	)

	AggregationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solarscope_aggregation_latency_seconds",
			Help:    "Aggregation operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)
