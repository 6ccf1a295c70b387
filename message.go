package goRelay

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// pendingRequest guards the caller's ResponseWriter so that exactly one
// terminal outcome is ever written, no matter which of reply, timeout, or
// disconnect wins the race.
type pendingRequest struct {
	w    http.ResponseWriter
	once sync.Once
}

// respond runs fn against the writer if and only if no outcome has been
// written yet. It reports whether fn ran.
func (p *pendingRequest) respond(fn func(w http.ResponseWriter)) bool {
	ran := false
	p.once.Do(func() {
		fn(p.w)
		ran = true
	})
	return ran
}

// handleMessage services the message endpoint. It runs stateless: the target
// session usually lives in another process, so nothing here touches the local
// registry. The call publishes the serialized request to the session's request
// channel and blocks until the reply arrives, the reply timeout fires, or the
// caller disconnects.
//
// The reply subscription is confirmed before the request is published, so a
// session that answers immediately cannot race past a not-yet-listening
// caller.
func (rel *Relay) handleMessage(w http.ResponseWriter, r *http.Request) {
	if rel.closed.Load() {
		http.Error(w, "relay closed", http.StatusServiceUnavailable)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		rel.metricInc(MetricMissingSession)
		rel.emitEvent(r.Context(), eventMissingSession, false, "", "", ErrMissingSessionID, nil)
		http.Error(w, "missing sessionId query parameter", http.StatusBadRequest)
		return
	}

	body, err := readBody(r, rel.config.Relay.MaxBodyBytes)
	if err != nil {
		rel.emitEvent(r.Context(), eventMessageDiscarded, false, sessionID, "", ErrBodyTooLarge, nil)
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	requestID := uuid.NewString()

	relayed := RelayedRequest{
		RequestID: requestID,
		Method:    r.Method,
		URL:       r.URL.RequestURI(),
		Header:    cloneHeader(r.Header),
		Body:      body,
	}
	if auth := authFromContext(r.Context()); auth != nil {
		relayed.Auth = auth
	}

	payload, err := json.Marshal(relayed)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	replyCh := make(chan []byte, 1)
	sub, err := rel.broker.Subscribe(r.Context(), rel.broker.ReplyChannel(sessionID, requestID), func(reply []byte) {
		select {
		case replyCh <- reply:
		default:
			// A second publish on a single-use channel; the first one won.
		}
	})
	if err != nil {
		rel.metricInc(MetricPublishFailure)
		log.Printf("goRelay: reply channel subscribe failed: %v", err)
		rel.emitEvent(r.Context(), eventPublishFailure, false, sessionID, requestID, err, nil)
		http.Error(w, "relay unavailable", http.StatusInternalServerError)
		return
	}
	defer sub.Unsubscribe()

	if err := rel.broker.Publish(r.Context(), rel.broker.RequestChannel(sessionID), payload); err != nil {
		rel.metricInc(MetricPublishFailure)
		log.Printf("goRelay: request publish failed: %v", err)
		rel.emitEvent(r.Context(), eventPublishFailure, false, sessionID, requestID, err, nil)
		http.Error(w, "relay unavailable", http.StatusInternalServerError)
		return
	}

	rel.metricInc(MetricMessageRelayed)

	pending := &pendingRequest{w: w}
	timer := time.NewTimer(rel.config.Relay.ReplyTimeout)
	defer timer.Stop()
	start := time.Now()

	select {
	case reply := <-replyCh:
		rel.deliverReply(r, pending, sessionID, requestID, reply, start)
	case <-timer.C:
		rel.metricInc(MetricRelayTimeout)
		rel.emitEvent(r.Context(), eventRelayTimeout, false, sessionID, requestID, ErrRelayTimeout, nil)
		pending.respond(func(w http.ResponseWriter) {
			http.Error(w, "request timed out waiting for session reply", http.StatusRequestTimeout)
		})
	case <-r.Context().Done():
		// Caller is gone; there is nobody left to write to.
		rel.metricInc(MetricRelayDisconnect)
		rel.emitEvent(r.Context(), eventRelayDisconnect, false, sessionID, requestID, nil, nil)
	}
}

// deliverReply decodes the captured session response and forwards status,
// headers, and body to the waiting caller. A reply that does not decode, or
// that carries no status, resolves the call with a generic 500 so the caller
// never inherits a half-formed response.
func (rel *Relay) deliverReply(r *http.Request, pending *pendingRequest, sessionID, requestID string, reply []byte, start time.Time) {
	var resp RelayedResponse
	if err := json.Unmarshal(reply, &resp); err != nil || resp.Status == 0 {
		rel.metricInc(MetricReplyMalformed)
		if err == nil {
			err = fmt.Errorf("%w: missing status", ErrMalformedReply)
		} else {
			err = fmt.Errorf("%w: %v", ErrMalformedReply, err)
		}
		log.Printf("goRelay: %v", err)
		rel.emitEvent(r.Context(), eventReplyMalformed, false, sessionID, requestID, ErrMalformedReply, nil)
		pending.respond(func(w http.ResponseWriter) {
			http.Error(w, "internal error", http.StatusInternalServerError)
		})
		return
	}

	delivered := pending.respond(func(w http.ResponseWriter) {
		dst := w.Header()
		for name, values := range resp.Header {
			dst[name] = append([]string(nil), values...)
		}
		w.WriteHeader(resp.Status)
		if len(resp.Body) > 0 {
			_, _ = w.Write(resp.Body)
		}
	})
	if delivered {
		rel.metricInc(MetricReplyDelivered)
		rel.metricObserve(MetricRelayWaitLatency, time.Since(start))
	}
}

// readBody drains the request body up to max bytes. One byte past the cap
// turns into an error rather than a silent truncation.
func readBody(r *http.Request, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r.Body)
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > max {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for name, values := range h {
		out[name] = append([]string(nil), values...)
	}
	return out
}
