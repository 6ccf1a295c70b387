package goRelay

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRegistryRejectsDuplicateSessionID(t *testing.T) {
	reg := newSessionRegistry()

	a := newSession("dup", &stubEngine{}, context.Background())
	defer a.cancel()
	b := newSession("dup", &stubEngine{}, context.Background())
	defer b.cancel()

	if !reg.add(a) {
		t.Fatal("first add should succeed")
	}
	if reg.add(b) {
		t.Fatal("second add with the same id must be refused")
	}
	if reg.len() != 1 {
		t.Fatalf("expected 1 session, got %d", reg.len())
	}
}

func TestRegistryStaleCutoff(t *testing.T) {
	reg := newSessionRegistry()

	fresh := newSession("fresh", &stubEngine{}, context.Background())
	defer fresh.cancel()
	old := newSession("old", &stubEngine{}, context.Background())
	defer old.cancel()
	old.lastSeen.Store(time.Now().Add(-10 * time.Minute).Unix())

	reg.add(fresh)
	reg.add(old)

	stale := reg.stale(time.Now(), 5*time.Minute)
	if len(stale) != 1 || stale[0].id != "old" {
		t.Fatalf("expected only the old session to be stale, got %d", len(stale))
	}

	old.touch()
	if got := reg.stale(time.Now(), 5*time.Minute); len(got) != 0 {
		t.Fatalf("touched session must not be stale, got %d", len(got))
	}
}

func TestSessionsSortedByCreation(t *testing.T) {
	rel, _, done := buildTestRelay(t, relayTestConfig(), func(ctx context.Context) (ProtocolEngine, error) {
		return &stubEngine{}, nil
	})
	defer done()

	server := httptest.NewServer(rel)
	defer server.Close()

	first := openStream(t, server.URL, "/sse")
	defer first.close()
	time.Sleep(1100 * time.Millisecond)
	second := openStream(t, server.URL, "/sse")
	defer second.close()

	sessions := rel.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].CreatedAt > sessions[1].CreatedAt {
		t.Fatal("sessions must be ordered oldest first")
	}
	if sessions[0].SessionID != first.sessionID {
		t.Fatalf("expected oldest session first, got %q", sessions[0].SessionID)
	}
	for _, info := range sessions {
		if info.LastSeen == 0 {
			t.Fatal("LastSeen must be populated")
		}
	}
}
