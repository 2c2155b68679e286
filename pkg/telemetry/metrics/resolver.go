package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ResolverMetrics tracks settings resolution.
//
// Metrics:
//   - switchboard_resolver_resolutions_total: resolutions by field and winning source
//   - switchboard_resolver_store_reads_total: store reads by outcome
//   - switchboard_resolver_store_read_seconds: store read latency
//   - switchboard_resolver_invalidations_total: cache invalidations by trigger
//   - switchboard_resolver_cache_entries: cached provider descriptors
type ResolverMetrics struct {
	resolutions   *prometheus.CounterVec
	storeReads    *prometheus.CounterVec
	storeLatency  prometheus.Histogram
	invalidations *prometheus.CounterVec
	entries       prometheus.Gauge
}

// newResolverMetrics creates and registers resolver metrics.
func newResolverMetrics(cfg *options, registry prometheus.Registerer) *ResolverMetrics {
	rm := &ResolverMetrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "resolver_resolutions_total",
			Help:      "Settings resolutions by field and source (override, cache, store, default, none)",
		}, []string{"field", "source"}),
		storeReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "resolver_store_reads_total",
			Help:      "Settings store reads by outcome (ok, not_found, error, suppressed)",
		}, []string{"outcome"}),
		storeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "resolver_store_read_seconds",
			Help:      "Settings store read latency",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "resolver_invalidations_total",
			Help:      "Resolver cache invalidations by trigger (notify, manual, refresh)",
		}, []string{"trigger"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.namespace,
			Name:      "resolver_cache_entries",
			Help:      "Provider descriptors currently cached",
		}),
	}

	registry.MustRegister(rm.resolutions, rm.storeReads, rm.storeLatency, rm.invalidations, rm.entries)
	return rm
}

func (rm *ResolverMetrics) recordStoreRead(outcome string, duration time.Duration) {
	rm.storeReads.WithLabelValues(outcome).Inc()
	if outcome != "suppressed" {
		rm.storeLatency.Observe(duration.Seconds())
	}
}
