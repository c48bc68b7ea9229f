package rates

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/fx-rates-proxy/pkg/cache"
	"github.com/Sternrassler/fx-rates-proxy/pkg/store"
)

// DefaultMaxAge is the staleness horizon of durable entries.
const DefaultMaxAge = 24 * time.Hour

// DurableConfig configures a DurableCache.
type DurableConfig struct {
	// MaxAge is how long an entry stays usable after it was fetched
	// (default 24h).
	MaxAge time.Duration

	// Clock returns the current time (default time.Now).
	Clock func() time.Time

	Logger zerolog.Logger
}

// DurableCache is the persistent per-pair rate cache. Stale entries are
// bypassed, never deleted; the next successful fetch overwrites them.
type DurableCache struct {
	repo   store.RateRepository
	maxAge time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewDurableCache creates a DurableCache on repo.
func NewDurableCache(repo store.RateRepository, cfg DurableConfig) *DurableCache {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &DurableCache{
		repo:   repo,
		maxAge: cfg.MaxAge,
		now:    cfg.Clock,
		logger: cfg.Logger,
	}
}

// Get returns the entry for base→target if one exists and is younger than
// the staleness horizon. Store errors count as a miss.
func (d *DurableCache) Get(ctx context.Context, base, target string) (store.RateEntry, bool) {
	entry, err := d.repo.GetRate(ctx, base, target)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cache.CacheMisses.WithLabelValues(LayerDurable, cache.MissAbsent).Inc()
			return store.RateEntry{}, false
		}
		cache.CacheMisses.WithLabelValues(LayerDurable, cache.MissError).Inc()
		d.logger.Warn().
			Err(err).
			Str("base", base).
			Str("target", target).
			Msg("Durable cache read failed, treating as miss")
		return store.RateEntry{}, false
	}

	age := d.now().Sub(entry.UpdatedAt)
	if age >= d.maxAge {
		cache.CacheMisses.WithLabelValues(LayerDurable, cache.MissStale).Inc()
		d.logger.Debug().
			Str("base", base).
			Str("target", target).
			Dur("age", age).
			Msg("Durable cache entry stale")
		return store.RateEntry{}, false
	}

	cache.CacheHits.WithLabelValues(LayerDurable).Inc()
	return entry, true
}

// Put records rate for base→target, fetched now.
func (d *DurableCache) Put(ctx context.Context, base, target string, rate float64) error {
	return d.repo.UpsertRate(ctx, store.RateEntry{
		Base:      base,
		Target:    target,
		Rate:      rate,
		UpdatedAt: d.now().UTC(),
	})
}
