// Package metrics provides Prometheus metrics for Switchboard.
//
// Metric groups:
//
//   - Fan-out: requests by mode and outcome, end-to-end latency, target
//     counts, requests rejected before dispatch
//   - Provider: settled tasks by status and error kind, latency, token
//     usage, in-flight tasks, retries, clamps, truncations, local rate
//     limiting
//   - Resolver: resolutions by winning source, store reads, invalidations,
//     cache size
//
// Metrics register into the collector's own registry and are served by
// Collector.Handler. A nil or disabled collector records nothing.
package metrics
