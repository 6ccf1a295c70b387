// Package goRelay bridges stateless HTTP invocations and long-lived event-stream
// sessions over Redis publish/subscribe, so a protocol engine behind a durable
// connection can serve requests that arrive in executions sharing no memory with it.
//
// The package is designed for concurrent server workloads: Relay handlers are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goRelay is the public surface. It exposes [Relay], [Builder], [Config], and value
// types (RelayedRequest, RelayedResponse, Event, MetricsSnapshot, etc.). Transport
// fabrication lives in synthetic/, the pub/sub bridge in broker/, and message
// throttling primitives under internal/.
//
// # What this package must NOT do
//
//   - Implement protocol logic (callers supply a [ProtocolEngine] via [EngineFactory]).
//   - Persist messages beyond one request/response round trip.
//   - Retry lost deliveries (retry policy belongs to callers).
//
// # Delivery contract
//
// Every relayed request resolves to exactly one terminal HTTP status: the
// engine's real response, 400 for a missing session id, 408 on reply timeout,
// or 500 for broker-level failures. Callers never hang unbounded, and a
// response is never written twice even when a reply races a disconnect.
package goRelay
