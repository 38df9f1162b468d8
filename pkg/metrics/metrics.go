// Package metrics exposes Prometheus instruments for reindex runs and
// queries.
package metrics

import (
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReindexFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finstruct_reindex_files_total",
			Help: "Source files handled by reindex runs, by outcome",
		},
		[]string{"status"},
	)

	ReindexDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finstruct_reindex_duration_seconds",
			Help:    "Reindex run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	IndexedRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "finstruct_indexed_records",
			Help: "Records in the current index",
		},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finstruct_query_total",
			Help: "Queries answered, by outcome",
		},
		[]string{"outcome"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finstruct_query_duration_seconds",
			Help:    "Query duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"kind"},
	)

	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finstruct_cache_requests_total",
			Help: "Query cache lookups, by result",
		},
		[]string{"result"},
	)
)

// Reindex file outcomes.
const (
	FileExtracted = "extracted"
	FileSkipped   = "skipped"
	FileFailed    = "failed"
	FileRemoved   = "removed"
)

// Query outcomes.
const (
	QueryMatched    = "matched"
	QueryEmpty      = "empty"
	QueryInvalid    = "invalid"
	QueryStale      = "stale"
	QueryCacheHit   = "hit"
	QueryCacheMiss  = "miss"
	QueryCacheError = "error"
)

var registerOnce sync.Once

// Register adds the instruments to the default registry. Calling it more
// than once is harmless.
func Register() {
	registerOnce.Do(func() {
		for _, c := range []prometheus.Collector{
			ReindexFiles, ReindexDuration, IndexedRecords,
			QueryTotal, QueryDuration, CacheRequests,
		} {
			if err := prometheus.Register(c); err != nil {
				var are prometheus.AlreadyRegisteredError
				if !errors.As(err, &are) {
					panic(err)
				}
			}
		}
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
