// Package middleware exposes HTTP middleware adapters that authenticate
// relay callers and enrich request contexts before goRelay handlers run.
//
// # Guards
//
//   - [Auth] — bearer token verification, injects [goRelay.AuthContext].
//   - [RequireScopes] — scope enforcement on top of a verified context.
//   - [ClientInfo] — client IP and User-Agent extraction for telemetry.
//
// Each guard reads standard HTTP request material, delegates the actual
// decision to a [TokenVerifier], and injects the result into the request
// context where the relay picks it up and forwards it with every relayed
// message.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into verifier calls. It does NOT
// decide what a valid token is — all decisions are delegated to the
// configured [TokenVerifier].
//
// # What this package must NOT do
//
//   - Talk to the broker or touch sessions (the relay handles delivery).
//   - Persist anything (verifiers own their own state, if any).
//   - Make authorization decisions beyond pass/reject from the verifier.
package middleware
