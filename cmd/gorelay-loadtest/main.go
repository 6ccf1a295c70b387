package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goRelay "github.com/MrEthical07/goRelay"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// echoEngine answers every message with its own body. It keeps the engine
// cost near zero so the measured latency is the relay round trip.
type echoEngine struct{}

func (echoEngine) ServeMessage(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		body = []byte(`{}`)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
	return nil
}

func (echoEngine) Close() error { return nil }

type liveSession struct {
	id   string
	body io.ReadCloser
}

func main() {
	var (
		sessions    = flag.Int("sessions", 64, "number of live sessions to open")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (message + unified)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "", "broker channel prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goRelay.DefaultConfig()
	cfg.Relay.ReplyTimeout = 10 * time.Second
	cfg.Broker.ChannelPrefix = *prefix
	cfg.Events.Enabled = false

	rel, err := goRelay.New().
		WithConfig(cfg).
		WithRedis(client).
		WithEngineFactory(func(ctx context.Context) (goRelay.ProtocolEngine, error) {
			return echoEngine{}, nil
		}).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay build failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rel.Close() }()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen failed: %v\n", err)
		os.Exit(1)
	}
	server := &http.Server{Handler: rel}
	go func() { _ = server.Serve(ln) }()
	defer func() { _ = server.Close() }()

	base := "http://" + ln.Addr().String()

	fmt.Printf("opening %d sessions...\n", *sessions)
	startOpen := time.Now()
	live, err := openSessions(base, cfg.Relay.ConnectPath, *sessions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "session open failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		for _, s := range live {
			_ = s.body.Close()
		}
	}()
	fmt.Printf("opened in %s\n", time.Since(startOpen).Round(time.Millisecond))

	messageStats := runMessagePhase(base, cfg.Relay.MessagePath, live, *ops, *concurrency)
	unifiedStats := runUnifiedPhase(base, cfg.Relay.UnifiedPath, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("message", messageStats)
	printStats("unified", unifiedStats)

	snapshot := rel.MetricsSnapshot()
	fmt.Printf("relay: delivered=%d timeouts=%d engine_failures=%d\n",
		snapshot.Counters[goRelay.MetricReplyDelivered],
		snapshot.Counters[goRelay.MetricRelayTimeout],
		snapshot.Counters[goRelay.MetricEngineFailure],
	)
}

func openSessions(base, connectPath string, n int) ([]liveSession, error) {
	client := &http.Client{}
	out := make([]liveSession, 0, n)
	for i := 0; i < n; i++ {
		req, err := http.NewRequest(http.MethodGet, base+connectPath, nil)
		if err != nil {
			return out, err
		}
		req.Header.Set("Accept", "text/event-stream")

		resp, err := client.Do(req)
		if err != nil {
			return out, err
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return out, fmt.Errorf("connect returned %d", resp.StatusCode)
		}

		sid, err := readEndpointEvent(resp.Body)
		if err != nil {
			_ = resp.Body.Close()
			return out, err
		}
		out = append(out, liveSession{id: sid, body: resp.Body})
	}
	return out, nil
}

// readEndpointEvent scans the stream for the initial endpoint event and
// extracts the sessionId from the advertised message URL.
func readEndpointEvent(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		endpoint, err := url.Parse(strings.TrimPrefix(line, "data: "))
		if err != nil {
			return "", err
		}
		sid := endpoint.Query().Get("sessionId")
		if sid == "" {
			return "", errors.New("endpoint event missing sessionId")
		}
		return sid, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", errors.New("stream ended before endpoint event")
}

func runMessagePhase(base, messagePath string, live []liveSession, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	payload := []byte(`{"jsonrpc":"2.0","method":"ping","id":1}`)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			client := &http.Client{}
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				sid := live[r.Intn(len(live))].id
				t0 := time.Now()
				ok := postOnce(client, base+messagePath+"?sessionId="+sid, payload)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runUnifiedPhase(base, unifiedPath string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	payload := []byte(`{"jsonrpc":"2.0","method":"ping","id":2}`)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			client := &http.Client{}
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				ok := postOnce(client, base+unifiedPath, payload)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func postOnce(client *http.Client, target string, payload []byte) bool {
	resp, err := client.Post(target, "application/json", bytes.NewReader(payload))
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
