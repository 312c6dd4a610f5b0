// Package metrics exposes the Prometheus counters and gauges used by the
// actorflow runtime (channels, actors and clients). Everything is registered
// on Registry, which cmd/actorflow serves on /metrics.
package metrics
