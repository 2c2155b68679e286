package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks per-provider task outcomes.
//
// Metrics:
//   - switchboard_provider_tasks_total: settled tasks by status and error kind
//   - switchboard_provider_latency_seconds: task latency
//   - switchboard_provider_tokens: reported token usage by direction
//   - switchboard_provider_in_flight: tasks currently running
//   - switchboard_provider_retries_total: retry attempts
//   - switchboard_provider_clamped_total: requests whose max tokens were clamped
//   - switchboard_provider_truncated_total: outputs cut by the token limit
//   - switchboard_provider_local_rate_limited_total: tasks refused by the local RPM gate
type ProviderMetrics struct {
	tasks       *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	tokens      *prometheus.HistogramVec
	inFlight    *prometheus.GaugeVec
	retries     *prometheus.CounterVec
	clamped     *prometheus.CounterVec
	truncated   *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
}

// newProviderMetrics creates and registers provider metrics.
func newProviderMetrics(cfg *options, registry prometheus.Registerer) *ProviderMetrics {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}

	pm := &ProviderMetrics{
		tasks: counter("provider_tasks_total",
			"Settled provider tasks by status (succeeded, failed, timed_out) and error kind",
			"provider", "model", "status", "error_kind"),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "provider_latency_seconds",
			Help:      "Provider task latency in seconds",
			Buckets:   cfg.latencyBuckets,
		}, []string{"provider", "model"}),
		tokens: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "provider_tokens",
			Help:      "Token usage reported by providers",
			Buckets:   cfg.tokenBuckets,
		}, []string{"provider", "direction"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.namespace,
			Name:      "provider_in_flight",
			Help:      "Provider tasks currently running",
		}, []string{"provider"}),
		retries: counter("provider_retries_total",
			"Retry attempts after retryable upstream failures", "provider"),
		clamped: counter("provider_clamped_total",
			"Requests whose max tokens were clamped to the provider cap", "provider"),
		truncated: counter("provider_truncated_total",
			"Outputs that stopped at the token limit", "provider"),
		rateLimited: counter("provider_local_rate_limited_total",
			"Tasks refused by the local requests-per-minute gate", "provider"),
	}

	registry.MustRegister(
		pm.tasks,
		pm.latency,
		pm.tokens,
		pm.inFlight,
		pm.retries,
		pm.clamped,
		pm.truncated,
		pm.rateLimited,
	)
	return pm
}

func (pm *ProviderMetrics) recordTask(provider, model, status, errorKind string, latency time.Duration, input, output int) {
	pm.tasks.WithLabelValues(provider, model, status, errorKind).Inc()
	pm.latency.WithLabelValues(provider, model).Observe(latency.Seconds())
	if input > 0 {
		pm.tokens.WithLabelValues(provider, "input").Observe(float64(input))
	}
	if output > 0 {
		pm.tokens.WithLabelValues(provider, "output").Observe(float64(output))
	}
}
