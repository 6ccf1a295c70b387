//go:build integration
// +build integration

package test

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestRelayCloseTearsDownAllSessions(t *testing.T) {
	cfg := integrationConfig()

	engine := &echoEngine{}
	h, cleanup := newIntegrationRelay(t, cfg, echoFactory(engine))
	defer cleanup()

	const sessions = 12
	streams := make([]*sessionStream, 0, sessions)
	for i := 0; i < sessions; i++ {
		streams = append(streams, openSession(t, h.url(), cfg))
	}
	defer func() {
		for _, s := range streams {
			s.close()
		}
	}()

	if got := h.relay.SessionCount(); got != sessions {
		t.Fatalf("expected %d sessions before close, got %d", sessions, got)
	}

	if err := h.relay.Close(); err != nil {
		t.Fatalf("relay close failed: %v", err)
	}

	if got := h.relay.SessionCount(); got != 0 {
		t.Fatalf("expected 0 sessions after close, got %d", got)
	}
	if got := engine.closes.Load(); got != sessions {
		t.Fatalf("expected engine closed once per session (%d), got %d", sessions, got)
	}

	// Close is idempotent; a second call must not re-run any cleanup.
	if err := h.relay.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if got := engine.closes.Load(); got != sessions {
		t.Fatalf("second close re-ran cleanup: %d engine closes", got)
	}

	for _, path := range []string{cfg.Relay.MessagePath + "?sessionId=x", cfg.Relay.UnifiedPath} {
		resp, err := http.Post(h.url()+path, "application/json", strings.NewReader(`{}`))
		if err != nil {
			t.Fatalf("post %s failed: %v", path, err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("%s after close: expected 503, got %d", path, resp.StatusCode)
		}
		_ = readAll(t, resp)
	}

	req, err := http.NewRequest(http.MethodGet, h.url()+cfg.Relay.ConnectPath, nil)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect after close failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("connect after close: expected 503, got %d", resp.StatusCode)
	}
	_ = readAll(t, resp)
}

// TestSweeperReclaimsExpiredSessions lets the max-duration timer and the
// sweeper race each other over the same sessions; every session must still
// clean up exactly once.
func TestSweeperReclaimsExpiredSessions(t *testing.T) {
	cfg := integrationConfig()
	cfg.Session.MaxDuration = 100 * time.Millisecond
	cfg.Session.SweepInterval = 25 * time.Millisecond

	engine := &echoEngine{}
	h, cleanup := newIntegrationRelay(t, cfg, echoFactory(engine))
	defer cleanup()

	const sessions = 3
	for i := 0; i < sessions; i++ {
		stream := openSession(t, h.url(), cfg)
		defer stream.close()
	}

	waitFor(t, 3*time.Second, func() bool { return h.relay.SessionCount() == 0 }, "expired sessions not reclaimed")
	time.Sleep(50 * time.Millisecond)

	if got := engine.closes.Load(); got != sessions {
		t.Fatalf("expected %d engine closes, got %d", sessions, got)
	}
}

func TestKeepaliveCommentsFlowOnIdleStream(t *testing.T) {
	cfg := integrationConfig()
	cfg.Session.KeepAliveInterval = 30 * time.Millisecond

	h, cleanup := newIntegrationRelay(t, cfg, echoFactory(&echoEngine{}))
	defer cleanup()

	stream := openSession(t, h.url(), cfg)
	defer stream.close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := stream.reader.ReadString('\n')
		if err != nil {
			t.Fatalf("stream read failed: %v", err)
		}
		if strings.HasPrefix(line, ": keepalive") {
			return
		}
	}
	t.Fatal("no keepalive comment observed on idle stream")
}
