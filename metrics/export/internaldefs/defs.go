package internaldefs

import (
	goRelay "github.com/MrEthical07/goRelay"
)

// CounterDef defines a public type used by goRelay APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goRelay.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goRelay APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goRelay.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the relay core.
var CounterDefs = []CounterDef{
	{ID: goRelay.MetricSessionOpened, Name: "gorelay_session_opened_total", Help: "Sessions opened on the connection endpoint."},
	{ID: goRelay.MetricSessionClosed, Name: "gorelay_session_closed_total", Help: "Sessions closed, across all termination triggers."},
	{ID: goRelay.MetricSessionRejected, Name: "gorelay_session_rejected_total", Help: "Connection attempts rejected before a session was created."},
	{ID: goRelay.MetricMessageRelayed, Name: "gorelay_message_relayed_total", Help: "Messages accepted and published toward a session."},
	{ID: goRelay.MetricMessageDispatched, Name: "gorelay_message_dispatched_total", Help: "Messages handed to a session's protocol engine."},
	{ID: goRelay.MetricReplyDelivered, Name: "gorelay_reply_delivered_total", Help: "Replies delivered back to waiting callers."},
	{ID: goRelay.MetricRelayTimeout, Name: "gorelay_relay_timeout_total", Help: "Relay calls resolved by the reply timeout."},
	{ID: goRelay.MetricRelayDisconnect, Name: "gorelay_relay_disconnect_total", Help: "Relay calls abandoned by caller disconnect."},
	{ID: goRelay.MetricReplyMalformed, Name: "gorelay_reply_malformed_total", Help: "Replies discarded because they did not decode."},
	{ID: goRelay.MetricMissingSession, Name: "gorelay_missing_session_total", Help: "Message calls rejected for a missing session id."},
	{ID: goRelay.MetricEngineFailure, Name: "gorelay_engine_failure_total", Help: "Protocol engine invocations that returned an error."},
	{ID: goRelay.MetricPublishFailure, Name: "gorelay_publish_failure_total", Help: "Broker publish or subscribe operations that failed."},
	{ID: goRelay.MetricUnifiedCall, Name: "gorelay_unified_call_total", Help: "Calls to the unified endpoint."},
	{ID: goRelay.MetricMessageThrottled, Name: "gorelay_message_throttled_total", Help: "Session messages dropped by the message throttle."},
}

// HistogramDefs is an exported constant or variable used by the relay core.
var HistogramDefs = []HistogramDef{
	{ID: goRelay.MetricRelayWaitLatency, Name: "gorelay_relay_wait_seconds", Help: "Relay wait latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the relay core.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the relay core.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
