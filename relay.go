package goRelay

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/goRelay/broker"
	"github.com/MrEthical07/goRelay/internal/rate"
)

// Relay defines a public type used by goRelay APIs.
//
// Relay instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
//
// A Relay is the process-wide bridge between short-lived callers and
// long-lived sessions. It owns the broker wiring, the local session registry,
// the background sweeper, and the lazy unified engine. Construct one per
// process through the Builder and share it across every handler.
type Relay struct {
	config Config

	broker   *broker.Broker
	registry *sessionRegistry
	factory  EngineFactory

	events   *eventDispatcher
	metrics  *Metrics
	throttle *rate.Limiter

	unifiedMu     sync.Mutex
	unifiedEngine ProtocolEngine

	sweepCancel func()
	sweepDone   chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Close tears down the relay: the sweeper stops, every open session runs its
// cleanup, the unified engine is released, and the event dispatcher drains.
// The injected redis client stays open; its lifecycle belongs to the caller.
// Close is idempotent and new endpoint calls after Close fail with 503.
func (rel *Relay) Close() error {
	rel.closeOnce.Do(func() {
		rel.closed.Store(true)

		rel.sweepCancel()
		<-rel.sweepDone

		for _, s := range rel.registry.active() {
			rel.closeSession(s, "relay closed")
		}

		rel.unifiedMu.Lock()
		engine := rel.unifiedEngine
		rel.unifiedEngine = nil
		rel.unifiedMu.Unlock()
		if engine != nil {
			if err := engine.Close(); err != nil {
				log.Printf("goRelay: unified engine close failed: %v", err)
			}
		}

		rel.events.Close()
	})
	return nil
}

// ConfigSnapshot returns a copy of the configuration the relay was built
// with. The copy is detached; mutating it has no effect on the relay.
func (rel *Relay) ConfigSnapshot() Config {
	return rel.config
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (rel *Relay) MetricsSnapshot() MetricsSnapshot {
	return rel.metrics.Snapshot()
}

// EventsDropped reports how many events the dispatcher discarded because its
// buffer was full. Always zero unless DropIfFull is set.
func (rel *Relay) EventsDropped() uint64 {
	return rel.events.Dropped()
}
