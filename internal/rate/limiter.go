package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableMessageThrottle bool
	MaxMessages           int
	Window                time.Duration
}

// Limiter enforces per-session inbound message limits using Redis counters.
// Counters live in Redis so the limit holds across independent stateless
// invocations that share no process memory.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// AllowMessage records one inbound message for the session and checks it
// against the per-window budget. Returns ErrRateLimited when the budget is
// exhausted.
func (l *Limiter) AllowMessage(ctx context.Context, sessionID string) error {
	if !l.config.EnableMessageThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, messageKey(sessionID), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxMessages) {
		return ErrRateLimited
	}

	return nil
}

// Reset clears the message counter for a session. Called on session close so
// a reconnect under the same id starts with a fresh budget.
func (l *Limiter) Reset(ctx context.Context, sessionID string) error {
	if !l.config.EnableMessageThrottle {
		return nil
	}

	if err := l.redis.Del(ctx, messageKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// MessageCount returns the current counter for a session. Missing keys
// return zero.
func (l *Limiter) MessageCount(ctx context.Context, sessionID string) (int, error) {
	count, err := l.redis.Get(ctx, messageKey(sessionID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func messageKey(sessionID string) string {
	return "rm:" + sessionID
}
