package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LocalConfig configures a Local cache.
type LocalConfig struct {
	// Layer is the metrics/log label of this cache (default "local").
	Layer string

	// Clock returns the current time (default time.Now).
	Clock func() time.Time

	Logger zerolog.Logger
}

// Local is an in-memory TTL cache. The mutex protects the map only; two
// callers that miss the same key concurrently both compute and both Set,
// and the later write wins.
type Local[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	layer   string
	now     func() time.Time
	logger  zerolog.Logger
}

// NewLocal creates an empty Local cache.
func NewLocal[V any](cfg LocalConfig) *Local[V] {
	if cfg.Layer == "" {
		cfg.Layer = "local"
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Local[V]{
		entries: make(map[string]Entry[V]),
		layer:   cfg.Layer,
		now:     cfg.Clock,
		logger:  cfg.Logger,
	}
}

// Get returns the value stored under key if it has not expired.
func (c *Local[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, found := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !found {
		CacheMisses.WithLabelValues(c.layer, MissAbsent).Inc()
		c.logger.Debug().Str("layer", c.layer).Str("key", key).Msg("Cache miss")
		return zero, false
	}

	now := c.now()
	if entry.IsExpired(now) {
		CacheMisses.WithLabelValues(c.layer, MissExpired).Inc()
		c.logger.Debug().Str("layer", c.layer).Str("key", key).Msg("Cache entry expired")
		return zero, false
	}

	CacheHits.WithLabelValues(c.layer).Inc()
	c.logger.Debug().
		Str("layer", c.layer).
		Str("key", key).
		Dur("ttl_left", entry.TTL(now)).
		Msg("Cache hit")
	return entry.Value, true
}

// Set stores value under key for ttl, replacing any previous entry and its
// expiry. A non-positive ttl is a no-op.
func (c *Local[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[key] = Entry[V]{Value: value, ExpiresAt: c.now().Add(ttl)}
	size := len(c.entries)
	c.mu.Unlock()

	CacheEntries.WithLabelValues(c.layer).Set(float64(size))
	c.logger.Debug().Str("layer", c.layer).Str("key", key).Dur("ttl", ttl).Msg("Cache set")
}

// Delete removes key.
func (c *Local[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	size := len(c.entries)
	c.mu.Unlock()

	CacheEntries.WithLabelValues(c.layer).Set(float64(size))
}

// Len returns the number of stored entries, expired ones included.
func (c *Local[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Local[V]) Sweep() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for key, entry := range c.entries {
		if entry.IsExpired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	CacheEntries.WithLabelValues(c.layer).Set(float64(size))
	if removed > 0 {
		CacheEvictions.WithLabelValues(c.layer).Add(float64(removed))
		c.logger.Info().Str("layer", c.layer).Int("count", removed).Msg("Cleared expired cache entries")
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is cancelled.
// A non-positive interval returns immediately.
func (c *Local[V]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug().Str("layer", c.layer).Msg("Cache sweeper stopped")
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Close drops every entry. The cache stays usable afterwards.
func (c *Local[V]) Close() {
	c.mu.Lock()
	c.entries = make(map[string]Entry[V])
	c.mu.Unlock()

	CacheEntries.WithLabelValues(c.layer).Set(0)
}
