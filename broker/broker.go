package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrBrokerUnavailable is an exported constant or variable used by the relay core.
	ErrBrokerUnavailable = errors.New("broker unavailable")
	// ErrClosed is an exported constant or variable used by the relay core.
	ErrClosed = errors.New("broker closed")
)

// Handler receives one published payload. Handlers for the same subscription
// are invoked sequentially in broker delivery order; a handler that blocks
// delays later messages on its own channel only.
type Handler func(payload []byte)

// Broker bridges relay components over Redis publish/subscribe channels.
//
// The underlying client is shared by every session and relay call in the
// process; go-redis multiplexes publishes over its connection pool and opens
// one dedicated connection per subscription.
type Broker struct {
	client redis.UniversalClient
	prefix string
}

// New creates a [Broker] on top of the given Redis client. The prefix, when
// non-empty, namespaces every channel name produced by this broker.
func New(client redis.UniversalClient, prefix string) *Broker {
	return &Broker{
		client: client,
		prefix: prefix,
	}
}

// RequestChannel returns the inbound channel name for a session.
func (b *Broker) RequestChannel(sessionID string) string {
	return b.prefix + "request:" + sessionID
}

// ReplyChannel returns the single-round-trip reply channel name for one
// request against a session.
func (b *Broker) ReplyChannel(sessionID, requestID string) string {
	return b.prefix + "reply:" + sessionID + ":" + requestID
}

// Publish delivers a payload to every current subscriber of the channel.
// Publishing to a channel with no subscribers succeeds and drops the payload;
// Redis pub/sub retains nothing.
func (b *Broker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
	return nil
}

// Subscribe registers fn for every payload published to the channel.
//
// The registration is confirmed with the server before Subscribe returns:
// a payload published after Subscribe returns is observed by fn. This is
// the ordering edge the relay depends on when it subscribes to a reply
// channel before publishing the request that produces the reply.
//
// The returned [Subscription] must be released with Unsubscribe.
func (b *Broker) Subscribe(ctx context.Context, channel string, fn Handler) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel)

	// Receive blocks until the server acknowledges the SUBSCRIBE command.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	sub := &Subscription{
		channel: channel,
		pubsub:  pubsub,
		done:    make(chan struct{}),
	}

	ch := pubsub.Channel()
	go func() {
		defer close(sub.done)
		for msg := range ch {
			fn([]byte(msg.Payload))
		}
	}()

	return sub, nil
}
