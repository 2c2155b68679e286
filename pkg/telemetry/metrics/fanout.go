package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FanoutMetrics tracks whole fan-out requests.
//
// Metrics:
//   - switchboard_fanout_requests_total: fan-outs by mode and outcome
//   - switchboard_fanout_duration_seconds: dispatch start to envelope
//   - switchboard_fanout_targets: number of providers per fan-out
//   - switchboard_fanout_rejected_total: requests rejected before dispatch
type FanoutMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	targets  prometheus.Histogram
	rejected *prometheus.CounterVec
}

// newFanoutMetrics creates and registers fan-out metrics.
func newFanoutMetrics(cfg *options, registry prometheus.Registerer) *FanoutMetrics {
	fm := &FanoutMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Name:      "fanout_requests_total",
				Help:      "Total fan-out requests by mode (buffered, stream) and outcome (all, partial, none)",
			},
			[]string{"mode", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.namespace,
				Name:      "fanout_duration_seconds",
				Help:      "Fan-out latency from dispatch start to the last settled task",
				Buckets:   cfg.latencyBuckets,
			},
			[]string{"mode"},
		),
		targets: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.namespace,
				Name:      "fanout_targets",
				Help:      "Number of providers targeted per fan-out",
				Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16},
			},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Name:      "fanout_rejected_total",
				Help:      "Requests rejected before dispatch by reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(fm.requests, fm.duration, fm.targets, fm.rejected)
	return fm
}

func (fm *FanoutMetrics) record(mode string, targets, successful int, duration time.Duration) {
	outcome := "partial"
	switch {
	case successful == targets:
		outcome = "all"
	case successful == 0:
		outcome = "none"
	}

	fm.requests.WithLabelValues(mode, outcome).Inc()
	fm.duration.WithLabelValues(mode).Observe(duration.Seconds())
	fm.targets.Observe(float64(targets))
}
