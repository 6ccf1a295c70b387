package goRelay

import (
	"context"
	"errors"

	"github.com/MrEthical07/goRelay/broker"
	"github.com/MrEthical07/goRelay/internal/rate"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goRelay APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	factory   EngineFactory
	eventSink EventSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithEngineFactory describes the withenginefactory operation and its observable behavior.
//
// WithEngineFactory may return an error when input validation, dependency calls, or security checks fail.
// WithEngineFactory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithEngineFactory(factory EngineFactory) *Builder {
	b.factory = factory
	return b
}

// WithEventSink describes the witheventsink operation and its observable behavior.
//
// WithEventSink may return an error when input validation, dependency calls, or security checks fail.
// WithEventSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Relay, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if b.factory == nil {
		return nil, errors.New("engine factory required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- BROKER --------
	bk := broker.New(b.redis, cfg.Broker.ChannelPrefix)

	// -------- RELAY CORE --------
	rel := &Relay{
		config:   cfg,
		broker:   bk,
		registry: newSessionRegistry(),
		factory:  b.factory,
	}

	rel.metrics = NewMetrics(cfg.Metrics)
	rel.events = newEventDispatcher(cfg.Events, b.eventSink)

	if cfg.Security.EnableMessageThrottle {
		rel.throttle = rate.New(b.redis, rate.Config{
			EnableMessageThrottle: true,
			MaxMessages:           cfg.Security.MaxMessagesPerWindow,
			Window:                cfg.Security.ThrottleWindow,
		})
	}

	// -------- SWEEPER --------
	sweepCtx, cancel := context.WithCancel(context.Background())
	rel.sweepCancel = cancel
	rel.sweepDone = make(chan struct{})
	go rel.sweepLoop(sweepCtx)

	b.built = true

	return rel, nil
}
