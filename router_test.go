package goRelay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRouterServesConfiguredPaths(t *testing.T) {
	cfg := relayTestConfig()
	cfg.Relay.ConnectPath = "/events"
	cfg.Relay.MessagePath = "/rpc"
	cfg.Relay.UnifiedPath = "/direct"

	rel, _, done := buildTestRelay(t, cfg, func(ctx context.Context) (ProtocolEngine, error) {
		return &stubEngine{serve: func(w http.ResponseWriter, r *http.Request) error {
			_, _ = w.Write([]byte(`{}`))
			return nil
		}}, nil
	})
	defer done()

	server := httptest.NewServer(rel)
	defer server.Close()

	// Each endpoint has a distinguishing failure mode, so a wrong-method
	// probe identifies which handler answered.
	resp, err := http.Post(server.URL+"/events", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("connect path: expected 405, got %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/rpc", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("message path: expected 400 without sessionId, got %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/direct", "application/json", strings.NewReader(`{"jsonrpc":"2.0","method":"x","id":1}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unified path: expected 200, got %d", resp.StatusCode)
	}
}

func TestRouterUnknownPathIs404(t *testing.T) {
	rel, _, done := buildTestRelay(t, relayTestConfig(), func(ctx context.Context) (ProtocolEngine, error) {
		return &stubEngine{}, nil
	})
	defer done()

	server := httptest.NewServer(rel)
	defer server.Close()

	resp, err := http.Get(server.URL + "/nope")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRouterHandlerAccessorsMountOnExternalMux(t *testing.T) {
	rel, _, done := buildTestRelay(t, relayTestConfig(), func(ctx context.Context) (ProtocolEngine, error) {
		return &stubEngine{serve: func(w http.ResponseWriter, r *http.Request) error {
			_, _ = w.Write([]byte(`{}`))
			return nil
		}}, nil
	})
	defer done()

	mux := http.NewServeMux()
	mux.Handle("/custom/stream", rel.ConnectionHandler())
	mux.Handle("/custom/send", rel.MessageHandler())
	mux.Handle("/custom/rpc", rel.UnifiedHandler())

	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Post(server.URL+"/custom/rpc", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unified handler on external mux: expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/custom/send", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("message handler on external mux: expected 400, got %d", resp.StatusCode)
	}

	stream := openStream(t, server.URL, "/custom/stream")
	stream.close()
	if stream.sessionID == "" {
		t.Fatal("connection handler on external mux did not open a stream")
	}
}
