package goRelay

import "net/http"

// ServeHTTP dispatches to the three relay endpoints by exact path match.
// Mounting the Relay itself is the quick path; applications that already run
// their own mux can mount the individual handlers instead. Both routes reach
// the same code.
func (rel *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case rel.config.Relay.ConnectPath:
		rel.handleConnection(w, r)
	case rel.config.Relay.MessagePath:
		rel.handleMessage(w, r)
	case rel.config.Relay.UnifiedPath:
		rel.handleUnified(w, r)
	default:
		http.NotFound(w, r)
	}
}

// ConnectionHandler returns the connection endpoint as a standalone handler.
func (rel *Relay) ConnectionHandler() http.HandlerFunc { return rel.handleConnection }

// MessageHandler returns the message endpoint as a standalone handler.
func (rel *Relay) MessageHandler() http.HandlerFunc { return rel.handleMessage }

// UnifiedHandler returns the unified endpoint as a standalone handler.
func (rel *Relay) UnifiedHandler() http.HandlerFunc { return rel.handleUnified }
