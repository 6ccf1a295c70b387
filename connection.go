package goRelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goRelay/internal"
	"github.com/MrEthical07/goRelay/internal/rate"
	"github.com/MrEthical07/goRelay/synthetic"
)

// handleConnection services the connection endpoint: it validates the
// event-stream preconditions, creates a durable session with its own engine
// instance, subscribes to the session's request channel, and then holds the
// stream open until a termination trigger fires. The session id reaches the
// client through the initial "endpoint" event.
func (rel *Relay) handleConnection(w http.ResponseWriter, r *http.Request) {
	if rel.closed.Load() {
		http.Error(w, "relay closed", http.StatusServiceUnavailable)
		return
	}

	if r.Method != http.MethodGet {
		rel.metricInc(MetricSessionRejected)
		rel.emitEvent(r.Context(), eventSessionRejected, false, "", "", ErrConnectionRejected, func() map[string]string {
			return map[string]string{"method": r.Method}
		})
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !acceptsEventStream(r.Header.Get("Accept")) {
		rel.metricInc(MetricSessionRejected)
		rel.emitEvent(r.Context(), eventSessionRejected, false, "", "", ErrConnectionRejected, func() map[string]string {
			return map[string]string{"accept": r.Header.Get("Accept")}
		})
		http.Error(w, "Accept must include text/event-stream", http.StatusNotAcceptable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, ErrStreamingUnsupported.Error(), http.StatusInternalServerError)
		return
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	engine, err := rel.factory(r.Context())
	if err != nil {
		log.Printf("goRelay: engine init failed: %v", err)
		rel.metricInc(MetricSessionRejected)
		rel.emitEvent(r.Context(), eventSessionRejected, false, "", "", ErrEngineInit, nil)
		http.Error(w, "engine initialization failed", http.StatusInternalServerError)
		return
	}

	s := newSession(sid.String(), engine, r.Context())
	if !rel.registry.add(s) {
		// A 16-byte random collision means broken entropy; refuse rather
		// than hijack the existing session.
		s.cancel()
		_ = engine.Close()
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sub, err := rel.broker.Subscribe(s.ctx, rel.broker.RequestChannel(s.id), func(payload []byte) {
		rel.dispatchSessionMessage(s, payload)
	})
	if err != nil {
		s.cancel()
		_ = engine.Close()
		rel.registry.remove(s.id)
		log.Printf("goRelay: request channel subscribe failed: %v", err)
		http.Error(w, "relay unavailable", http.StatusInternalServerError)
		return
	}
	s.addSubscription(sub)

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	endpoint := rel.config.Relay.MessagePath + "?sessionId=" + s.id
	if _, err := fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", endpoint); err != nil {
		rel.closeSession(s, "write error")
		return
	}
	flusher.Flush()

	rel.metricInc(MetricSessionOpened)
	rel.emitEvent(r.Context(), eventSessionOpened, true, s.id, "", nil, nil)

	rel.runSessionLoop(w, flusher, r, s)
}

// runSessionLoop blocks until one of the termination triggers fires: client
// abort, max-duration expiry, an external close (engine-initiated, sweep, or
// relay shutdown), or a keepalive write error. Each trigger funnels into the
// same idempotent cleanup.
func (rel *Relay) runSessionLoop(w http.ResponseWriter, flusher http.Flusher, r *http.Request, s *session) {
	maxTimer := time.NewTimer(rel.config.Session.MaxDuration)
	defer maxTimer.Stop()

	var keepalive <-chan time.Time
	if interval := rel.config.Session.KeepAliveInterval; interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		keepalive = ticker.C
	}

	for {
		select {
		case <-r.Context().Done():
			rel.closeSession(s, "client disconnect")
			return
		case <-maxTimer.C:
			rel.closeSession(s, "max duration")
			return
		case <-s.done:
			// Cleanup already ran on another trigger.
			return
		case <-keepalive:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				rel.closeSession(s, "write error")
				return
			}
			flusher.Flush()
		}
	}
}

// dispatchSessionMessage handles one payload from the session's request
// channel: decode, synthesize a request/response pair, invoke the engine,
// publish the captured result to the per-request reply channel.
//
// Messages are delivered sequentially per session, so engine invocations for
// one session never interleave. An engine failure discards only the current
// message; the session stays open and the waiting relay call resolves via
// its timeout.
func (rel *Relay) dispatchSessionMessage(s *session, payload []byte) {
	s.touch()

	if rel.throttle != nil {
		if err := rel.throttle.AllowMessage(s.ctx, s.id); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				rel.metricInc(MetricMessageThrottled)
				rel.emitEvent(s.ctx, eventMessageThrottled, false, s.id, "", ErrMessageThrottled, nil)
				return
			}
			// Redis hiccup: let the message through rather than stall the session.
			log.Printf("goRelay: message throttle check failed: %v", err)
		}
	}

	var req RelayedRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Printf("goRelay: discarding undecodable message on session %s: %v", s.id, err)
		rel.emitEvent(s.ctx, eventMessageDiscarded, false, s.id, "", nil, func() map[string]string {
			return map[string]string{"reason": "decode"}
		})
		return
	}
	if req.RequestID == "" {
		rel.emitEvent(s.ctx, eventMessageDiscarded, false, s.id, "", nil, func() map[string]string {
			return map[string]string{"reason": "missing_request_id"}
		})
		return
	}

	ctx := s.ctx
	if req.Auth != nil {
		ctx = WithAuthContext(ctx, *req.Auth)
	}

	sreq, err := synthetic.NewRequest(ctx, req.Method, req.URL, req.Header, req.Body)
	if err != nil {
		log.Printf("goRelay: synthetic request build failed on session %s: %v", s.id, err)
		rel.emitEvent(s.ctx, eventMessageDiscarded, false, s.id, req.RequestID, nil, func() map[string]string {
			return map[string]string{"reason": "synthetic_request"}
		})
		return
	}

	rec := synthetic.NewRecorder()
	rel.metricInc(MetricMessageDispatched)

	if err := s.engine.ServeMessage(rec, sreq); err != nil {
		rel.metricInc(MetricEngineFailure)
		log.Printf("goRelay: engine failure on session %s: %v", s.id, err)
		rel.emitEvent(s.ctx, eventEngineFailure, false, s.id, req.RequestID, ErrEngineFailure, nil)
		return
	}

	reply := RelayedResponse{
		RequestID: req.RequestID,
		Status:    rec.Status(),
		Header:    rec.Header(),
		Body:      append([]byte(nil), rec.Body()...),
	}
	data, err := json.Marshal(reply)
	if err != nil {
		log.Printf("goRelay: reply marshal failed on session %s: %v", s.id, err)
		return
	}

	if err := rel.broker.Publish(s.ctx, rel.broker.ReplyChannel(s.id, req.RequestID), data); err != nil {
		rel.metricInc(MetricPublishFailure)
		log.Printf("goRelay: reply publish failed on session %s: %v", s.id, err)
		rel.emitEvent(s.ctx, eventPublishFailure, false, s.id, req.RequestID, err, nil)
	}
}

// closeSession is the single cleanup routine every termination trigger funnels
// into. It runs at most once per session no matter how many triggers fire
// concurrently: cancel the session context, release all subscriptions, close
// the engine, drop the registry entry, then announce the closure.
func (rel *Relay) closeSession(s *session, reason string) {
	s.cleanupOnce.Do(func() {
		s.cancel()

		for _, sub := range s.drainSubscriptions() {
			sub.Unsubscribe()
		}

		if err := s.engine.Close(); err != nil {
			log.Printf("goRelay: engine close failed on session %s: %v", s.id, err)
		}

		rel.registry.remove(s.id)

		if rel.throttle != nil {
			if err := rel.throttle.Reset(context.Background(), s.id); err != nil {
				log.Printf("goRelay: throttle reset failed on session %s: %v", s.id, err)
			}
		}

		rel.metricInc(MetricSessionClosed)
		rel.emitEvent(context.Background(), eventSessionClosed, true, s.id, "", nil, func() map[string]string {
			return map[string]string{"reason": reason}
		})

		close(s.done)
	})
}

func acceptsEventStream(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(part)
		if i := strings.IndexByte(mediaType, ';'); i >= 0 {
			mediaType = strings.TrimSpace(mediaType[:i])
		}
		switch mediaType {
		case "text/event-stream", "text/*", "*/*":
			return true
		}
	}
	return false
}
