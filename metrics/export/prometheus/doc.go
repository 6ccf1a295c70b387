// Package prometheus provides Prometheus collectors for goRelay metrics.
//
// [NewPrometheusExporter] accepts a [goRelay.Relay] and exposes an [http.Handler]
// that renders all goRelay counters and histograms in Prometheus text exposition format.
// Counter names are prefixed gorelay_*_total; the single histogram is
// gorelay_relay_wait_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate relay state.
package prometheus
