package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval and document store Prometheus metrics.
var (
	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval latency including query embedding",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"degraded"},
	)

	RetrievalCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_candidates",
			Help:      "Documents left after metadata filtering",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	DocumentsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents_stored",
			Help:      "Documents currently held by the in-memory store",
		},
	)

	CustomersIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "customers_indexed_total",
			Help:      "Customer documents written to the store by outcome",
		},
		[]string{"status"}, // "ok" / "degraded" / "error"
	)
)

var retrievalOnce sync.Once

// RegisterRetrievalMetrics registers retrieval metrics. Safe to call more than once.
func RegisterRetrievalMetrics() {
	retrievalOnce.Do(func() {
		prometheus.MustRegister(
			RetrievalDuration,
			RetrievalCandidates,
			DocumentsStored,
			CustomersIndexedTotal,
		)
	})
}
