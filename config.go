package goRelay

import (
	"errors"
	"strings"
	"time"
)

// Config defines a public type used by goRelay APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Relay    RelayConfig
	Session  SessionConfig
	Broker   BrokerConfig
	Events   EventConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
RELAY CONFIG
====================================
*/

// RelayConfig defines a public type used by goRelay APIs.
//
// RelayConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RelayConfig struct {
	// ConnectPath, MessagePath, and UnifiedPath are the routes served by
	// [Relay.ServeHTTP]. All three must start with "/".
	ConnectPath string
	MessagePath string
	UnifiedPath string

	// ReplyTimeout bounds how long one relayed request waits for its reply
	// before resolving as 408. Every relay path uses this single knob.
	ReplyTimeout time.Duration

	// MaxBodyBytes caps inbound message bodies on the message and unified
	// endpoints. Oversized bodies are rejected with 413.
	MaxBodyBytes int64
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by goRelay APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	// MaxDuration is the absolute lifetime of a durable session. The
	// connection loop closes the session when it elapses; the registry
	// sweeper enforces the same bound on idle time as a backstop.
	MaxDuration time.Duration

	// KeepAliveInterval is the cadence of event-stream keepalive comments.
	// Zero disables keepalives; the write error that would detect a dead
	// client then only surfaces on the next endpoint write.
	KeepAliveInterval time.Duration

	// SweepInterval is the cadence of the stale-session sweep. Zero
	// disables the sweeper.
	SweepInterval time.Duration
}

/*
====================================
BROKER CONFIG
====================================
*/

// BrokerConfig defines a public type used by goRelay APIs.
//
// BrokerConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BrokerConfig struct {
	// ChannelPrefix namespaces every pub/sub channel. Leave empty for the
	// bare request:{sessionId} / reply:{sessionId}:{requestId} layout.
	ChannelPrefix string
}

// EventConfig defines a public type used by goRelay APIs.
//
// EventConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EventConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goRelay APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by goRelay APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	// EnableMessageThrottle turns on the Redis-backed per-session inbound
	// message limiter. Over-budget messages are dropped with an event; the
	// waiting relay caller resolves via its timeout.
	EnableMessageThrottle bool
	MaxMessagesPerWindow  int
	ThrottleWindow        time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration [New] starts from: conservative
// timeouts, events and metrics off, throttling off.
func DefaultConfig() Config {
	return Config{
		Relay: RelayConfig{
			ConnectPath:  "/sse",
			MessagePath:  "/message",
			UnifiedPath:  "/mcp",
			ReplyTimeout: 30 * time.Second,
			MaxBodyBytes: 4 << 20,
		},
		Session: SessionConfig{
			MaxDuration:       5 * time.Minute,
			KeepAliveInterval: 15 * time.Second,
			SweepInterval:     time.Minute,
		},
		Broker: BrokerConfig{
			ChannelPrefix: "",
		},
		Events: EventConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			EnableMessageThrottle: false,
			MaxMessagesPerWindow:  120,
			ThrottleWindow:        time.Minute,
		},
	}
}

/*
====================================
PRESET CONFIGS
====================================
*/

// HighSecurityConfig returns a preset tuned for hostile-client deployments:
// tighter body and lifetime caps, the per-session throttle on, and events
// enabled in blocking mode so no audit record is lost.
func HighSecurityConfig() Config {
	cfg := DefaultConfig()

	cfg.Relay.ReplyTimeout = 15 * time.Second
	cfg.Relay.MaxBodyBytes = 1 << 20

	cfg.Session.MaxDuration = 2 * time.Minute
	cfg.Session.KeepAliveInterval = 10 * time.Second
	cfg.Session.SweepInterval = 30 * time.Second

	cfg.Events.Enabled = true
	cfg.Events.BufferSize = 4096
	cfg.Events.DropIfFull = false

	cfg.Metrics.Enabled = true

	cfg.Security.EnableMessageThrottle = true
	cfg.Security.MaxMessagesPerWindow = 60
	cfg.Security.ThrottleWindow = time.Minute

	return cfg
}

// HighThroughputConfig returns a preset tuned for trusted high-volume
// callers: larger bodies, sparser keepalives, events off, counters on.
func HighThroughputConfig() Config {
	cfg := DefaultConfig()

	cfg.Relay.ReplyTimeout = 10 * time.Second
	cfg.Relay.MaxBodyBytes = 16 << 20

	cfg.Session.KeepAliveInterval = 30 * time.Second
	cfg.Session.SweepInterval = 2 * time.Minute

	cfg.Events.Enabled = false

	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = false

	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Relay
	if err := validatePath("Relay ConnectPath", c.Relay.ConnectPath); err != nil {
		return err
	}
	if err := validatePath("Relay MessagePath", c.Relay.MessagePath); err != nil {
		return err
	}
	if err := validatePath("Relay UnifiedPath", c.Relay.UnifiedPath); err != nil {
		return err
	}
	if c.Relay.ConnectPath == c.Relay.MessagePath ||
		c.Relay.ConnectPath == c.Relay.UnifiedPath ||
		c.Relay.MessagePath == c.Relay.UnifiedPath {
		return errors.New("Relay endpoint paths must be distinct")
	}
	if c.Relay.ReplyTimeout <= 0 {
		return errors.New("Relay ReplyTimeout must be > 0")
	}
	if c.Relay.MaxBodyBytes <= 0 {
		return errors.New("Relay MaxBodyBytes must be > 0")
	}

	// Session
	if c.Session.MaxDuration <= 0 {
		return errors.New("Session MaxDuration must be > 0")
	}
	if c.Session.KeepAliveInterval < 0 {
		return errors.New("Session KeepAliveInterval must be >= 0")
	}
	if c.Session.SweepInterval < 0 {
		return errors.New("Session SweepInterval must be >= 0")
	}

	// Broker
	if strings.ContainsAny(c.Broker.ChannelPrefix, " \t\r\n") {
		return errors.New("Broker ChannelPrefix must not contain whitespace")
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when Events are enabled")
	}

	// Security
	if c.Security.EnableMessageThrottle {
		if c.Security.MaxMessagesPerWindow <= 0 {
			return errors.New("Security MaxMessagesPerWindow must be > 0 when throttling is enabled")
		}
		if c.Security.ThrottleWindow <= 0 {
			return errors.New("Security ThrottleWindow must be > 0 when throttling is enabled")
		}
	}

	return nil
}

func validatePath(name, path string) error {
	if path == "" || !strings.HasPrefix(path, "/") {
		return errors.New(name + " must start with '/'")
	}
	return nil
}
