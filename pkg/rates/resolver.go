package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/fx-rates-proxy/pkg/cache"
	"github.com/Sternrassler/fx-rates-proxy/pkg/upstream"
)

// DefaultRequestTTL is how long a resolved request is served from the
// process-local cache.
const DefaultRequestTTL = 5 * time.Minute

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// DefaultBase replaces an empty base (default "USD").
	DefaultBase string

	// RequestTTL of process-local entries (default 5m).
	RequestTTL time.Duration

	// NormalizeTargets sorts and de-duplicates targets when building the
	// process-local key. Off by default: [EUR,JPY] and [JPY,EUR] are
	// cached separately.
	NormalizeTargets bool

	// DeduplicateInFlight makes concurrent resolutions of the same key share
	// one computation.
	DeduplicateInFlight bool

	Logger zerolog.Logger
}

// Resolver answers rate requests from the caches, falling back to the
// provider one pair at a time.
type Resolver struct {
	local      *cache.Local[*Result]
	durable    *DurableCache
	currencies *CurrencyList
	fetcher    RateFetcher

	defaultBase string
	requestTTL  time.Duration
	normalize   bool
	dedup       bool
	group       singleflight.Group

	logger zerolog.Logger
}

// NewResolver wires a Resolver from its collaborators.
func NewResolver(local *cache.Local[*Result], durable *DurableCache, currencies *CurrencyList, fetcher RateFetcher, cfg ResolverConfig) *Resolver {
	if cfg.DefaultBase == "" {
		cfg.DefaultBase = DefaultBase
	}
	if cfg.RequestTTL <= 0 {
		cfg.RequestTTL = DefaultRequestTTL
	}
	return &Resolver{
		local:       local,
		durable:     durable,
		currencies:  currencies,
		fetcher:     fetcher,
		defaultBase: NormalizeCode(cfg.DefaultBase),
		requestTTL:  cfg.RequestTTL,
		normalize:   cfg.NormalizeTargets,
		dedup:       cfg.DeduplicateInFlight,
		logger:      cfg.Logger,
	}
}

// Resolve returns the rates of targets relative to base. An empty base uses
// the default; an empty target list means every supported currency. Any
// failing pair fails the whole request and nothing is cached for it. The
// returned Result is shared with the cache and must not be modified.
func (r *Resolver) Resolve(ctx context.Context, base string, targets []string) (*Result, error) {
	base = NormalizeCode(base)
	if base == "" {
		base = r.defaultBase
	}

	targets = NormalizeCodes(targets)
	if len(targets) == 0 {
		targets = r.currencies.Supported(ctx)
	}

	key := cache.RequestKey{Base: base, Targets: targets, Normalize: r.normalize}.String()
	if result, ok := r.local.Get(key); ok {
		return result, nil
	}

	if !r.dedup {
		return r.compute(ctx, key, base, targets)
	}

	v, err, shared := r.group.Do(key, func() (any, error) {
		return r.compute(ctx, key, base, targets)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug().Str("key", key).Msg("Shared in-flight resolution")
	}
	return v.(*Result), nil
}

func (r *Resolver) compute(ctx context.Context, key, base string, targets []string) (*Result, error) {
	rates := make(map[string]float64, len(targets))
	for _, target := range targets {
		if target == base {
			rates[target] = 1
			continue
		}

		rate, err := r.pairRate(ctx, base, target)
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("base", base).
				Str("target", target).
				Msg("Rate resolution aborted")
			return nil, err
		}
		rates[target] = rate
	}

	result := &Result{Base: base, Rates: rates}
	r.local.Set(key, result, r.requestTTL)
	return result, nil
}

// pairRate resolves one non-identity pair through the durable cache.
func (r *Resolver) pairRate(ctx context.Context, base, target string) (float64, error) {
	if entry, ok := r.durable.Get(ctx, base, target); ok {
		return entry.Rate, nil
	}

	quoted, err := r.fetcher.FetchLatest(ctx, base, []string{target})
	if err != nil {
		return 0, fmt.Errorf("resolve %s/%s: %w", base, target, err)
	}
	rate, ok := quoted[target]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("resolve %s/%s: %w", base, target, &upstream.Error{
			Operation: upstream.OperationLatest,
			Class:     upstream.ErrorClassNotFound,
			Message:   "provider returned no usable rate",
		})
	}

	if err := r.durable.Put(ctx, base, target, rate); err != nil {
		r.logger.Warn().
			Err(err).
			Str("base", base).
			Str("target", target).
			Msg("Failed to write durable cache entry")
	}

	r.logger.Debug().
		Str("base", base).
		Str("target", target).
		Float64("rate", rate).
		Msg("Fetched rate from provider")
	return rate, nil
}
