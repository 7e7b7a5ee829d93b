package rag

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// engineMetrics holds the Prometheus collectors owned by an Engine.
type engineMetrics struct {
	// rebuildsTotal counts index rebuilds by strategy and result ("ok", "error").
	rebuildsTotal *prometheus.CounterVec

	// rebuildDuration records the wall-clock time of each rebuild.
	rebuildDuration *prometheus.HistogramVec

	// fragments is the number of fragments covered by the current index.
	fragments prometheus.Gauge
}

// newEngineMetrics registers the engine collectors against reg.
func newEngineMetrics(reg prometheus.Registerer) *engineMetrics {
	factory := promauto.With(reg)

	return &engineMetrics{
		rebuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragqa",
			Subsystem: "index",
			Name:      "rebuilds_total",
			Help:      "Total number of index rebuilds, partitioned by strategy and result.",
		}, []string{"strategy", "result"}),

		rebuildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragqa",
			Subsystem: "index",
			Name:      "rebuild_duration_seconds",
			Help:      "Wall-clock duration of full index rebuilds.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"strategy"}),

		fragments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ragqa",
			Subsystem: "index",
			Name:      "fragments",
			Help:      "Number of fragments covered by the current index.",
		}),
	}
}

// observeRebuild records one rebuild. n < 0 leaves the fragment gauge as is.
func (m *engineMetrics) observeRebuild(strategy, result string, d time.Duration, n int) {
	m.rebuildsTotal.WithLabelValues(strategy, result).Inc()
	m.rebuildDuration.WithLabelValues(strategy).Observe(d.Seconds())
	if n >= 0 {
		m.fragments.Set(float64(n))
	}
}
