package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the feed engine.
type Metrics struct {
	registry *prometheus.Registry

	// History pipeline
	FetchesTotal      *prometheus.CounterVec // labels: result=ok|empty|error
	FetchDuration     prometheus.Histogram
	CacheImprovements prometheus.Counter
	CacheEntries      prometheus.Gauge
	InFlightFetches   prometheus.Gauge

	// Feed queue
	QueueLength       prometheus.Gauge
	BatchRefillsTotal prometheus.Counter
	InjectionsTotal   prometheus.Counter
	EmbedBlockedTotal prometheus.Counter
}

// New registers and returns all engine metrics on a private registry, so
// multiple engines (and tests) never collide.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedcore_fetches_total",
			Help: "History fetches by outcome",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedcore_fetch_duration_seconds",
			Help:    "History fetch latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}),
		CacheImprovements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_cache_improvements_total",
			Help: "Cache entries replaced by a better candidate",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedcore_cache_entries",
			Help: "Markets with a cached history entry",
		}),
		InFlightFetches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedcore_inflight_fetches",
			Help: "History fetches currently dispatched",
		}),

		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedcore_queue_length",
			Help: "Items currently in the feed queue",
		}),
		BatchRefillsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_batch_refills_total",
			Help: "Feed batches fetched by the low-water-mark refill",
		}),
		InjectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_injections_total",
			Help: "Generated clips spliced into the queue",
		}),
		EmbedBlockedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_embed_blocked_total",
			Help: "External embeds that never signalled ready",
		}),
	}

	m.registry.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.CacheImprovements,
		m.CacheEntries,
		m.InFlightFetches,
		m.QueueLength,
		m.BatchRefillsTotal,
		m.InjectionsTotal,
		m.EmbedBlockedTotal,
	)

	return m
}

// Handler returns the scrape endpoint handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
