package goRelay

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goRelay/broker"
)

const (
	eventSessionOpened    = "session_opened"
	eventSessionClosed    = "session_closed"
	eventSessionRejected  = "session_rejected"
	eventRelayTimeout     = "relay_timeout"
	eventRelayDisconnect  = "relay_disconnect"
	eventMissingSession   = "missing_session_id"
	eventReplyMalformed   = "reply_malformed"
	eventEngineFailure    = "engine_failure"
	eventPublishFailure   = "publish_failure"
	eventMessageThrottled = "message_throttled"
	eventMessageDiscarded = "message_discarded"
)

// EventErrorCode defines a public type used by goRelay APIs.
//
// EventErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EventErrorCode string

const (
	eventErrConnectionRejected EventErrorCode = "connection_rejected"
	eventErrMissingSession     EventErrorCode = "missing_session_id"
	eventErrSessionNotFound    EventErrorCode = "session_not_found"
	eventErrTimeout            EventErrorCode = "timeout"
	eventErrMalformedReply     EventErrorCode = "malformed_reply"
	eventErrEngineFailure      EventErrorCode = "engine_failure"
	eventErrEngineInit         EventErrorCode = "engine_init_failed"
	eventErrThrottled          EventErrorCode = "throttled"
	eventErrBrokerUnavailable  EventErrorCode = "broker_unavailable"
	eventErrBodyTooLarge       EventErrorCode = "body_too_large"
	eventErrInternal           EventErrorCode = "internal_error"
)

func (rel *Relay) emitEvent(
	ctx context.Context,
	eventType string,
	success bool,
	sessionID string,
	requestID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if rel == nil || rel.events == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SessionID: sessionID,
		RequestID: requestID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := eventErrorCode(err); code != "" {
		event.Error = string(code)
	}

	rel.events.Emit(ctx, event)
}

func (rel *Relay) metricInc(id MetricID) {
	if rel == nil || rel.metrics == nil {
		return
	}
	rel.metrics.Inc(id)
}

func (rel *Relay) metricObserve(id MetricID, d time.Duration) {
	if rel == nil || rel.metrics == nil {
		return
	}
	rel.metrics.Observe(id, d)
}

func eventErrorCode(err error) EventErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrConnectionRejected):
		return eventErrConnectionRejected
	case errors.Is(err, ErrMissingSessionID):
		return eventErrMissingSession
	case errors.Is(err, ErrSessionNotFound):
		return eventErrSessionNotFound
	case errors.Is(err, ErrRelayTimeout):
		return eventErrTimeout
	case errors.Is(err, ErrMalformedReply):
		return eventErrMalformedReply
	case errors.Is(err, ErrEngineFailure):
		return eventErrEngineFailure
	case errors.Is(err, ErrEngineInit):
		return eventErrEngineInit
	case errors.Is(err, ErrMessageThrottled):
		return eventErrThrottled
	case errors.Is(err, ErrBodyTooLarge):
		return eventErrBodyTooLarge
	case errors.Is(err, broker.ErrBrokerUnavailable):
		return eventErrBrokerUnavailable
	default:
		return eventErrInternal
	}
}
