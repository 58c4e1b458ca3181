package ratelimit

import "time"

// RateLimiter limits request rates per key over a sliding window.
type RateLimiter interface {
	// Allow reports whether the key may perform another request within
	// the window.
	Allow(key string, limit int, window time.Duration) (bool, error)

	// Reset clears all rate limit state for the key.
	Reset(key string) error
}
