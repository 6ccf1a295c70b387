package goRelay

import (
	"testing"
	"time"
)

func TestConfigValidateRules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "connect path missing slash",
			mutate: func(c *Config) {
				c.Relay.ConnectPath = "sse"
			},
			wantValid: false,
		},
		{
			name: "message path empty",
			mutate: func(c *Config) {
				c.Relay.MessagePath = ""
			},
			wantValid: false,
		},
		{
			name: "duplicate endpoint paths",
			mutate: func(c *Config) {
				c.Relay.UnifiedPath = c.Relay.MessagePath
			},
			wantValid: false,
		},
		{
			name: "reply timeout zero",
			mutate: func(c *Config) {
				c.Relay.ReplyTimeout = 0
			},
			wantValid: false,
		},
		{
			name: "max body bytes negative",
			mutate: func(c *Config) {
				c.Relay.MaxBodyBytes = -1
			},
			wantValid: false,
		},
		{
			name: "session max duration zero",
			mutate: func(c *Config) {
				c.Session.MaxDuration = 0
			},
			wantValid: false,
		},
		{
			name: "keepalive disabled valid",
			mutate: func(c *Config) {
				c.Session.KeepAliveInterval = 0
			},
			wantValid: true,
		},
		{
			name: "keepalive negative",
			mutate: func(c *Config) {
				c.Session.KeepAliveInterval = -time.Second
			},
			wantValid: false,
		},
		{
			name: "sweeper disabled valid",
			mutate: func(c *Config) {
				c.Session.SweepInterval = 0
			},
			wantValid: true,
		},
		{
			name: "channel prefix with namespace valid",
			mutate: func(c *Config) {
				c.Broker.ChannelPrefix = "relay:prod:"
			},
			wantValid: true,
		},
		{
			name: "channel prefix with whitespace",
			mutate: func(c *Config) {
				c.Broker.ChannelPrefix = "relay prod"
			},
			wantValid: false,
		},
		{
			name: "events enabled without buffer",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.Events.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "throttle enabled valid",
			mutate: func(c *Config) {
				c.Security.EnableMessageThrottle = true
				c.Security.MaxMessagesPerWindow = 60
				c.Security.ThrottleWindow = time.Minute
			},
			wantValid: true,
		},
		{
			name: "throttle enabled without budget",
			mutate: func(c *Config) {
				c.Security.EnableMessageThrottle = true
				c.Security.MaxMessagesPerWindow = 0
			},
			wantValid: false,
		},
		{
			name: "throttle enabled without window",
			mutate: func(c *Config) {
				c.Security.EnableMessageThrottle = true
				c.Security.ThrottleWindow = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config, got nil")
			}
		})
	}
}

func TestDefaultConfigIsUsable(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	if cfg.Relay.ConnectPath == cfg.Relay.MessagePath || cfg.Relay.MessagePath == cfg.Relay.UnifiedPath {
		t.Fatal("default endpoint paths must be distinct")
	}
	if cfg.Relay.ReplyTimeout < time.Second {
		t.Fatalf("default reply timeout suspiciously low: %v", cfg.Relay.ReplyTimeout)
	}
	if cfg.Events.Enabled || cfg.Metrics.Enabled || cfg.Security.EnableMessageThrottle {
		t.Fatal("optional subsystems must default to off")
	}
}
