// Package broker wraps Redis publish/subscribe as the transport bridge between
// stateless relay invocations and long-lived session loops.
//
// Channels are ephemeral: created implicitly on first subscribe, never deleted,
// only unsubscribed. Delivery is at-most-once; a payload published while no
// subscriber is registered is gone. Callers that need the reply to a request
// they are about to publish must subscribe first — [Broker.Subscribe] confirms
// the registration with the server before returning, which makes that ordering
// sufficient.
//
// # Channel layout
//
//   - request:{sessionId}           — inbound messages for one session
//   - reply:{sessionId}:{requestId} — the reply to one relayed request
//
// # What this package must NOT do
//
//   - Retry or buffer lost payloads (retry policy belongs to callers).
//   - Own the Redis client lifecycle (callers construct and close it).
package broker
