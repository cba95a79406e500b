// Package metrics exposes bridge activity as Prometheus metrics.
//
// A [Metrics] value owns its own registry (Go runtime and process
// collectors included) and implements bridge.Observer, so it is plugged
// into the bridge like any other observer and served from /metrics by the
// HTTP API.
package metrics
