package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/switchboard/pkg/config"
)

// otherLabel replaces label values past the cardinality limit.
const otherLabel = "other"

// options are the resolved settings shared by the metric groups.
type options struct {
	namespace      string
	latencyBuckets []float64
	tokenBuckets   []float64
}

// Collector owns every Prometheus metric the service exports.
//
// All Record methods are safe to call on a nil *Collector and on a collector
// built from a disabled config, so components can take an optional
// collector without guarding every call site.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	fanout   *FanoutMetrics
	provider *ProviderMetrics
	resolver *ResolverMetrics

	// models bounds the model label, which comes from caller input.
	models *CardinalityLimiter
}

// NewCollector creates a collector registering into registry. A nil
// registry gets a fresh one, never the global default registry.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	opts := &options{
		namespace:      cfg.Namespace,
		latencyBuckets: cfg.LatencyBuckets,
		tokenBuckets:   cfg.TokenCountBuckets,
	}
	if opts.namespace == "" {
		opts.namespace = config.DefaultMetricsNamespace
	}
	if len(opts.latencyBuckets) == 0 {
		opts.latencyBuckets = config.DefaultLatencyBuckets
	}
	if len(opts.tokenBuckets) == 0 {
		opts.tokenBuckets = config.DefaultTokenCountBuckets
	}

	return &Collector{
		enabled:  cfg.Enabled,
		registry: registry,
		fanout:   newFanoutMetrics(opts, registry),
		provider: newProviderMetrics(opts, registry),
		resolver: newResolverMetrics(opts, registry),
		models:   NewCardinalityLimiter(256),
	}
}

func (c *Collector) active() bool {
	return c != nil && c.enabled
}

// RecordFanout records a finished fan-out.
//
// Parameters:
//   - mode: "buffered" or "stream"
//   - targets: number of providers in the fan-out
//   - successful: number of providers that succeeded
//   - duration: dispatch start to last settled task
func (c *Collector) RecordFanout(mode string, targets, successful int, duration time.Duration) {
	if !c.active() {
		return
	}
	c.fanout.record(mode, targets, successful, duration)
}

// RecordRejected records a request rejected before dispatch.
func (c *Collector) RecordRejected(reason string) {
	if !c.active() {
		return
	}
	c.fanout.rejected.WithLabelValues(reason).Inc()
}

// RecordTask records a settled provider task. errorKind is empty on success.
func (c *Collector) RecordTask(provider, model, status, errorKind string, latency time.Duration, inputTokens, outputTokens int) {
	if !c.active() {
		return
	}
	if !c.models.Allow(provider + "/" + model) {
		model = otherLabel
	}
	c.provider.recordTask(provider, model, status, errorKind, latency, inputTokens, outputTokens)
}

// TaskStarted increments the in-flight gauge and returns the matching
// decrement.
func (c *Collector) TaskStarted(provider string) func() {
	if !c.active() {
		return func() {}
	}
	gauge := c.provider.inFlight.WithLabelValues(provider)
	gauge.Inc()
	var once sync.Once
	return func() { once.Do(gauge.Dec) }
}

// RecordRetry records a retry attempt for provider.
func (c *Collector) RecordRetry(provider string) {
	if !c.active() {
		return
	}
	c.provider.retries.WithLabelValues(provider).Inc()
}

// RecordClamp records that a request's max tokens were clamped.
func (c *Collector) RecordClamp(provider string) {
	if !c.active() {
		return
	}
	c.provider.clamped.WithLabelValues(provider).Inc()
}

// RecordTruncated records output that stopped at the token limit.
func (c *Collector) RecordTruncated(provider string) {
	if !c.active() {
		return
	}
	c.provider.truncated.WithLabelValues(provider).Inc()
}

// RecordLocalRateLimit records a task refused by the local RPM gate.
func (c *Collector) RecordLocalRateLimit(provider string) {
	if !c.active() {
		return
	}
	c.provider.rateLimited.WithLabelValues(provider).Inc()
}

// RecordResolution records which source answered a settings lookup.
func (c *Collector) RecordResolution(field, source string) {
	if !c.active() {
		return
	}
	c.resolver.resolutions.WithLabelValues(field, source).Inc()
}

// RecordStoreRead records a settings store read. outcome is one of "ok",
// "not_found", "error" or "suppressed".
func (c *Collector) RecordStoreRead(outcome string, duration time.Duration) {
	if !c.active() {
		return
	}
	c.resolver.recordStoreRead(outcome, duration)
}

// RecordInvalidation records a resolver cache invalidation.
func (c *Collector) RecordInvalidation(trigger string) {
	if !c.active() {
		return
	}
	c.resolver.invalidations.WithLabelValues(trigger).Inc()
}

// SetCacheEntries sets the number of cached provider descriptors.
func (c *Collector) SetCacheEntries(n int) {
	if !c.active() {
		return
	}
	c.resolver.entries.Set(float64(n))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet may be used: true if it was seen before or
// the limit has not been reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
