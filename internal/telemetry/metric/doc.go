// Package metric provides Prometheus metrics for respkv.
//
//   - prometheus.go: Registry with event-driven metrics and the /metrics handler
//   - collector.go: Collector sampling store counters at scrape time
//
// Registry implements the observer hooks of the store actor and the RESP
// gateway, so neither of those packages imports Prometheus.
package metric
