package bulk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	pairings      *prometheus.CounterVec
	chunks        prometheus.Counter
	chunkDuration prometheus.Histogram
	lastCommitted prometheus.Gauge
}

// NewMetrics registers the bulk run metrics with reg. A nil registerer keeps
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		pairings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "inbox_ranker_bulk_pairings_total",
			Help: "Pairings handled by bulk scoring runs, by result.",
		}, []string{"result"}),
		chunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "inbox_ranker_bulk_chunks_total",
			Help: "Chunks committed by bulk scoring runs.",
		}),
		chunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "inbox_ranker_bulk_chunk_duration_seconds",
			Help:    "Time to load, score and persist one chunk.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		lastCommitted: factory.NewGauge(prometheus.GaugeOpts{
			Name: "inbox_ranker_bulk_last_committed_pairing_id",
			Help: "Highest pairing id committed by the current bulk run.",
		}),
	}
}
