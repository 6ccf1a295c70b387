package goRelay

import "errors"

var (
	// ErrConnectionRejected is an exported constant or variable used by the relay core.
	ErrConnectionRejected = errors.New("connection rejected")
	// ErrMissingSessionID is an exported constant or variable used by the relay core.
	ErrMissingSessionID = errors.New("missing session id")
	// ErrSessionNotFound is an exported constant or variable used by the relay core.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed is an exported constant or variable used by the relay core.
	ErrSessionClosed = errors.New("session closed")
	// ErrRelayTimeout is an exported constant or variable used by the relay core.
	ErrRelayTimeout = errors.New("relay timeout")
	// ErrMalformedReply is an exported constant or variable used by the relay core.
	ErrMalformedReply = errors.New("malformed reply payload")
	// ErrEngineFailure is an exported constant or variable used by the relay core.
	ErrEngineFailure = errors.New("protocol engine failure")
	// ErrEngineInit is an exported constant or variable used by the relay core.
	ErrEngineInit = errors.New("protocol engine initialization failed")
	// ErrMessageThrottled is an exported constant or variable used by the relay core.
	ErrMessageThrottled = errors.New("session message throttled")
	// ErrBodyTooLarge is an exported constant or variable used by the relay core.
	ErrBodyTooLarge = errors.New("request body too large")
	// ErrRelayClosed is an exported constant or variable used by the relay core.
	ErrRelayClosed = errors.New("relay closed")
	// ErrStreamingUnsupported is an exported constant or variable used by the relay core.
	ErrStreamingUnsupported = errors.New("response writer does not support streaming")
)
