// Package metrics provides Prometheus metrics for the trending engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "geotrend"

var (
	// IngestTotal counts ingestion calls by event kind and outcome.
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Total number of ingestion calls",
		},
		[]string{"kind", "status"},
	)

	// QueryDuration measures live query and snapshot lookup latency.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of trending queries in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"path"},
	)

	// QueryResults observes result counts per query.
	QueryResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_results",
			Help:      "Number of results returned per query",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"path"},
	)

	// MalformedRecordsTotal counts payloads skipped because they failed to parse.
	MalformedRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_records_total",
			Help:      "Total number of skipped malformed records",
		},
		[]string{"source"},
	)

	// GridCellsTotal counts cell outcomes of grid passes.
	GridCellsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_cells_total",
			Help:      "Total number of grid cells processed by outcome",
		},
		[]string{"outcome"},
	)

	// GridPassDuration measures full grid pass duration.
	GridPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grid_pass_duration_seconds",
			Help:      "Duration of full grid precomputation passes in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// GridPassSkippedTotal counts ticks skipped because a pass was still running.
	GridPassSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_pass_skipped_total",
			Help:      "Total number of scheduler ticks skipped while a pass was running",
		},
	)

	// GridLastPassTimestamp records when the last pass completed.
	GridLastPassTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grid_last_pass_timestamp_seconds",
			Help:      "Unix time of the last completed grid pass",
		},
	)
)

// Cell outcomes
const (
	CellUpdated = "updated"
	CellEmpty   = "empty"
	CellFailed  = "failed"
)

// RecordIngest records an ingestion call.
func RecordIngest(kind, status string) {
	IngestTotal.WithLabelValues(kind, status).Inc()
}

// RecordQuery records a query on the given path ("live" or "snapshot").
func RecordQuery(path string, seconds float64, results int) {
	QueryDuration.WithLabelValues(path).Observe(seconds)
	QueryResults.WithLabelValues(path).Observe(float64(results))
}

// RecordMalformed records a skipped payload.
func RecordMalformed(source string) {
	MalformedRecordsTotal.WithLabelValues(source).Inc()
}

// RecordCell records the outcome of one grid cell.
func RecordCell(outcome string) {
	GridCellsTotal.WithLabelValues(outcome).Inc()
}
