package cache

import (
	"time"
)

// Entry is a cached value together with its expiry.
type Entry[V any] struct {
	Value V

	// ExpiresAt is the instant after which the entry is treated as a miss.
	ExpiresAt time.Time
}

// IsExpired reports whether the entry has expired at now.
func (e Entry[V]) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// TTL returns the time left until expiration at now.
// Returns 0 if already expired.
func (e Entry[V]) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
