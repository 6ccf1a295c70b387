package rate

import "errors"

var (
	// ErrRateLimited is an exported constant or variable used by the relay core.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable is an exported constant or variable used by the relay core.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
