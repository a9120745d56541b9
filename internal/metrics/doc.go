// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - History fetch outcomes and latency
//   - Cache size and improvement rate
//   - Feed queue length and refill activity
//   - Injection and blocked-embed counts
package metrics
