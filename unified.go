package goRelay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/MrEthical07/goRelay/synthetic"
)

// methodNotAllowedEnvelope is the exact JSON-RPC error body the unified
// endpoint returns for non-POST requests. Clients match on it byte for byte,
// so it is a fixed literal rather than a marshaled struct.
const methodNotAllowedEnvelope = `{"jsonrpc":"2.0","error":{"code":-32000,"message":"Method not allowed."},"id":null}`

// handleUnified services the unified endpoint: a full protocol exchange in a
// single POST, no session, no broker. The engine behind it is a lazy
// process-wide singleton so repeated calls share handler registrations and
// warmed state.
func (rel *Relay) handleUnified(w http.ResponseWriter, r *http.Request) {
	if rel.closed.Load() {
		http.Error(w, "relay closed", http.StatusServiceUnavailable)
		return
	}

	rel.metricInc(MetricUnifiedCall)

	if r.Method != http.MethodPost {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(methodNotAllowedEnvelope))
		return
	}

	body, err := readBody(r, rel.config.Relay.MaxBodyBytes)
	if err != nil {
		rel.emitEvent(r.Context(), eventMessageDiscarded, false, "", "", ErrBodyTooLarge, nil)
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	if isJSONContentType(r.Header.Get("Content-Type")) && len(body) > 0 && !json.Valid(body) {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	engine, err := rel.unified(r.Context())
	if err != nil {
		log.Printf("goRelay: unified engine init failed: %v", err)
		rel.emitEvent(r.Context(), eventEngineFailure, false, "", "", ErrEngineInit, nil)
		http.Error(w, "engine initialization failed", http.StatusInternalServerError)
		return
	}

	sreq, err := synthetic.NewRequest(r.Context(), r.Method, r.URL.RequestURI(), r.Header, body)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	rec := synthetic.NewRecorder()
	if err := engine.ServeMessage(rec, sreq); err != nil {
		rel.metricInc(MetricEngineFailure)
		log.Printf("goRelay: unified engine failure: %v", err)
		rel.emitEvent(r.Context(), eventEngineFailure, false, "", "", ErrEngineFailure, nil)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	dst := w.Header()
	for name, values := range rec.Header() {
		dst[name] = append([]string(nil), values...)
	}
	w.WriteHeader(rec.Status())
	if body := rec.Body(); len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// unified returns the singleton engine, constructing it on first use. A
// failed construction leaves the slot empty so the next call retries instead
// of pinning the failure forever.
func (rel *Relay) unified(ctx context.Context) (ProtocolEngine, error) {
	rel.unifiedMu.Lock()
	defer rel.unifiedMu.Unlock()

	if rel.unifiedEngine != nil {
		return rel.unifiedEngine, nil
	}

	engine, err := rel.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineInit, err)
	}
	rel.unifiedEngine = engine
	return engine, nil
}

func isJSONContentType(contentType string) bool {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	return contentType == "application/json" || strings.HasSuffix(contentType, "+json")
}
