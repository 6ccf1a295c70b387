package broker

import (
	"sync"

	"github.com/redis/go-redis/v9"
)

// Subscription is one live channel registration. It delivers payloads to the
// handler passed to [Broker.Subscribe] until Unsubscribe is called or the
// broker connection drops.
type Subscription struct {
	channel string
	pubsub  *redis.PubSub
	done    chan struct{}
	once    sync.Once
}

// Channel returns the channel name this subscription is registered on.
func (s *Subscription) Channel() string {
	if s == nil {
		return ""
	}
	return s.channel
}

// Unsubscribe releases the registration and its dedicated connection. It is
// idempotent and safe to call from multiple goroutines; only the first call
// does work. The server stops delivering immediately; payloads already
// buffered locally may still reach the handler before Done closes.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		_ = s.pubsub.Close()
	})
}

// Done is closed once the delivery goroutine has drained and exited.
// Intended for tests that need to observe full teardown.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
