// Package internal contains helper utilities that are intentionally private to goRelay,
// including secure session-id generation.
//
// # Sub-packages
//
//   - rate — core Redis-backed rate limit primitives for per-session message throttling
//
// # What this package must NOT do
//
//   - Export types that appear in the public goRelay API.
//   - Be imported by any package outside the goRelay module.
package internal
