package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBroker(t *testing.T, prefix string) (*Broker, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return New(rdb, prefix), rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestChannelNameLayout(t *testing.T) {
	bare := New(nil, "")
	if got := bare.RequestChannel("s1"); got != "request:s1" {
		t.Fatalf("unexpected request channel %q", got)
	}
	if got := bare.ReplyChannel("s1", "r9"); got != "reply:s1:r9" {
		t.Fatalf("unexpected reply channel %q", got)
	}

	namespaced := New(nil, "relay:prod:")
	if got := namespaced.RequestChannel("s1"); got != "relay:prod:request:s1" {
		t.Fatalf("unexpected namespaced request channel %q", got)
	}
	if got := namespaced.ReplyChannel("s1", "r9"); got != "relay:prod:reply:s1:r9" {
		t.Fatalf("unexpected namespaced reply channel %q", got)
	}
}

func TestSubscribeThenPublishDelivers(t *testing.T) {
	b, _, done := newTestBroker(t, "")
	defer done()

	got := make(chan []byte, 1)
	sub, err := b.Subscribe(context.Background(), "request:s1", func(payload []byte) {
		got <- payload
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	// Subscribe confirmed registration with the server, so an immediate
	// publish must not be lost.
	if err := b.Publish(context.Background(), "request:s1", []byte("hello")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case payload := <-got:
		if string(payload) != "hello" {
			t.Fatalf("expected hello, got %q", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("published payload never delivered")
	}
}

func TestDeliveryPreservesPublishOrder(t *testing.T) {
	b, _, done := newTestBroker(t, "")
	defer done()

	const n = 100

	var mu sync.Mutex
	var received []string
	complete := make(chan struct{})

	sub, err := b.Subscribe(context.Background(), "request:ordered", func(payload []byte) {
		mu.Lock()
		received = append(received, string(payload))
		if len(received) == n {
			close(complete)
		}
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	for i := 0; i < n; i++ {
		if err := b.Publish(context.Background(), "request:ordered", []byte(fmt.Sprintf("m%03d", i))); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}

	select {
	case <-complete:
	case <-time.After(5 * time.Second):
		mu.Lock()
		count := len(received)
		mu.Unlock()
		t.Fatalf("only %d of %d messages delivered", count, n)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, payload := range received {
		if want := fmt.Sprintf("m%03d", i); payload != want {
			t.Fatalf("position %d: got %q, want %q", i, payload, want)
		}
	}
}

func TestSubscriptionsAreIndependent(t *testing.T) {
	b, _, done := newTestBroker(t, "")
	defer done()

	a := make(chan []byte, 1)
	subA, err := b.Subscribe(context.Background(), "request:a", func(p []byte) { a <- p })
	if err != nil {
		t.Fatalf("Subscribe a failed: %v", err)
	}
	defer subA.Unsubscribe()

	bb := make(chan []byte, 1)
	subB, err := b.Subscribe(context.Background(), "request:b", func(p []byte) { bb <- p })
	if err != nil {
		t.Fatalf("Subscribe b failed: %v", err)
	}
	defer subB.Unsubscribe()

	if err := b.Publish(context.Background(), "request:b", []byte("for-b")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case payload := <-bb:
		if string(payload) != "for-b" {
			t.Fatalf("expected for-b, got %q", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber b never received its payload")
	}

	select {
	case payload := <-a:
		t.Fatalf("subscriber a received foreign payload %q", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeIsIdempotentAndStopsDelivery(t *testing.T) {
	b, _, done := newTestBroker(t, "")
	defer done()

	got := make(chan []byte, 4)
	sub, err := b.Subscribe(context.Background(), "request:s1", func(p []byte) { got <- p })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if sub.Channel() != "request:s1" {
		t.Fatalf("unexpected subscription channel %q", sub.Channel())
	}

	sub.Unsubscribe()
	sub.Unsubscribe()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("delivery goroutine never exited")
	}

	if err := b.Publish(context.Background(), "request:s1", []byte("late")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	select {
	case payload := <-got:
		t.Fatalf("received %q after Unsubscribe", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishWithoutSubscribersSucceeds(t *testing.T) {
	b, _, done := newTestBroker(t, "")
	defer done()

	if err := b.Publish(context.Background(), "request:nobody", []byte("dropped")); err != nil {
		t.Fatalf("publish to empty channel should succeed: %v", err)
	}
}

func TestPublishAfterClientCloseReturnsBrokerUnavailable(t *testing.T) {
	b, rdb, done := newTestBroker(t, "")
	defer done()

	_ = rdb.Close()

	err := b.Publish(context.Background(), "request:s1", []byte("x"))
	if !errors.Is(err, ErrBrokerUnavailable) {
		t.Fatalf("expected ErrBrokerUnavailable, got %v", err)
	}
}

func TestSubscribeAfterClientCloseFails(t *testing.T) {
	b, rdb, done := newTestBroker(t, "")
	defer done()

	_ = rdb.Close()

	_, err := b.Subscribe(context.Background(), "request:s1", func([]byte) {})
	if !errors.Is(err, ErrBrokerUnavailable) {
		t.Fatalf("expected ErrBrokerUnavailable, got %v", err)
	}
}
