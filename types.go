package goRelay

import (
	"context"
	"net/http"
)

// AuthContext carries the authenticated caller's identity through the relay.
// Middleware attaches it before invocation; the relay serializes it onto the
// broker wire and reattaches it to the synthetic request handed to the
// protocol engine. It is never persisted beyond one request's lifetime.
//
//	Docs: docs/auth.md
type AuthContext struct {
	Token     string         `json:"token,omitempty"`
	Scopes    []string       `json:"scopes,omitempty"`
	ClientID  string         `json:"client_id,omitempty"`
	ExpiresAt int64          `json:"expires_at,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// HasScope reports whether the context carries the named scope.
func (a AuthContext) HasScope(scope string) bool {
	for _, s := range a.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ProtocolEngine is the application-logic component the relay invokes once a
// message has been turned into a transport-shaped request/response pair. The
// relay treats it as a black box: it must parse the synthetic request exactly
// as it would a socket-delivered one and write its result through the
// provided http.ResponseWriter.
//
// ServeMessage returning a non-nil error is an engine failure: the relay
// emits an error event and discards the message step, but the owning session
// survives. Close releases engine resources and is called at most once per
// instance.
type ProtocolEngine interface {
	ServeMessage(w http.ResponseWriter, r *http.Request) error
	Close() error
}

// EngineFactory constructs a [ProtocolEngine]. The connection manager calls
// it once per durable session; the unified handler constructs one engine
// lazily and reuses it across invocations, retrying only if construction
// failed.
type EngineFactory func(ctx context.Context) (ProtocolEngine, error)

// RelayedRequest is the wire form of one inbound request published to a
// session's request channel. Body is raw bytes (base64 in JSON), so string,
// binary, and JSON payloads all pass through unmodified.
type RelayedRequest struct {
	RequestID string       `json:"request_id"`
	Method    string       `json:"method"`
	URL       string       `json:"url"`
	Header    http.Header  `json:"header,omitempty"`
	Body      []byte       `json:"body,omitempty"`
	Auth      *AuthContext `json:"auth,omitempty"`
}

// RelayedResponse is the wire form of the engine's captured response,
// published to the reply channel for exactly one relayed request.
type RelayedResponse struct {
	RequestID string      `json:"request_id"`
	Status    int         `json:"status"`
	Header    http.Header `json:"header,omitempty"`
	Body      []byte      `json:"body,omitempty"`
}

// SessionInfo is a read-only view of one active session, returned by
// [Relay.Sessions] for introspection and operational tooling.
type SessionInfo struct {
	SessionID string
	CreatedAt int64
	LastSeen  int64
}
