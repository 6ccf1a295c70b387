// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for per-session inbound message throttling.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - rm: — inbound messages per-session
//
// # What this package must NOT do
//
//   - Decide what happens to an over-budget message (the connection manager does).
//   - Be imported outside the goRelay module.
package rate
