//go:build integration
// +build integration

package test

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goRelay "github.com/MrEthical07/goRelay"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// relayHarness bundles one relay instance with its HTTP front and the Redis
// backend it relays through. Harnesses built with newSharedRelay reuse a
// backend so multi-instance topologies can be simulated.
type relayHarness struct {
	relay  *goRelay.Relay
	server *httptest.Server
}

func (h *relayHarness) url() string { return h.server.URL }

func integrationConfig() goRelay.Config {
	cfg := goRelay.DefaultConfig()
	cfg.Relay.ReplyTimeout = 3 * time.Second
	cfg.Session.KeepAliveInterval = 0
	cfg.Session.SweepInterval = 0
	return cfg
}

func newIntegrationRedis(t *testing.T) (redis.UniversalClient, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	return rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

// newSharedRelay builds a relay on an existing Redis backend. Callers own the
// backend; the returned cleanup tears down only the relay and its server.
func newSharedRelay(t *testing.T, rdb redis.UniversalClient, cfg goRelay.Config, factory goRelay.EngineFactory) (*relayHarness, func()) {
	t.Helper()

	rel, err := goRelay.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithEngineFactory(factory).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("relay build failed: %v", err)
	}

	server := httptest.NewServer(rel)
	h := &relayHarness{relay: rel, server: server}
	return h, func() {
		server.Close()
		_ = rel.Close()
	}
}

func newIntegrationRelay(t *testing.T, cfg goRelay.Config, factory goRelay.EngineFactory) (*relayHarness, func()) {
	t.Helper()

	rdb, closeRedis := newIntegrationRedis(t)
	h, closeRelay := newSharedRelay(t, rdb, cfg, factory)
	return h, func() {
		closeRelay()
		closeRedis()
	}
}

// echoEngine answers every message with its own body and a marker header.
type echoEngine struct {
	serves atomic.Int64
	closes atomic.Int64
}

func (e *echoEngine) ServeMessage(w http.ResponseWriter, r *http.Request) error {
	e.serves.Add(1)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine", "echo")
	if len(body) == 0 {
		body = []byte(`{}`)
	}
	_, _ = w.Write(body)
	return nil
}

func (e *echoEngine) Close() error {
	e.closes.Add(1)
	return nil
}

// failingEngine reports an error for every message, so no reply is ever
// published and the waiting caller resolves via its timeout.
type failingEngine struct {
	failures atomic.Int64
}

func (e *failingEngine) ServeMessage(http.ResponseWriter, *http.Request) error {
	e.failures.Add(1)
	return io.ErrUnexpectedEOF
}

func (e *failingEngine) Close() error { return nil }

func echoFactory(engine *echoEngine) goRelay.EngineFactory {
	return func(ctx context.Context) (goRelay.ProtocolEngine, error) {
		return engine, nil
	}
}

type sessionStream struct {
	sessionID string
	resp      *http.Response
	reader    *bufio.Reader
}

func openSession(t *testing.T, baseURL string, cfg goRelay.Config) *sessionStream {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+cfg.Relay.ConnectPath, nil)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		t.Fatalf("connect returned %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)
	sid := ""
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			_ = resp.Body.Close()
			t.Fatalf("reading endpoint event failed: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		endpoint, err := url.Parse(strings.TrimSpace(strings.TrimPrefix(line, "data: ")))
		if err != nil {
			t.Fatalf("endpoint event carried a malformed URL: %v", err)
		}
		sid = endpoint.Query().Get("sessionId")
		break
	}
	if sid == "" {
		t.Fatal("endpoint event missing sessionId")
	}

	return &sessionStream{sessionID: sid, resp: resp, reader: reader}
}

func (s *sessionStream) close() {
	_ = s.resp.Body.Close()
}

func postMessage(t *testing.T, baseURL string, cfg goRelay.Config, sessionID, body string) *http.Response {
	t.Helper()

	target := baseURL + cfg.Relay.MessagePath + "?sessionId=" + sessionID
	resp, err := http.Post(target, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("message post failed: %v", err)
	}
	return resp
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body failed: %v", err)
	}
	return string(body)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
