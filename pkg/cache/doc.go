// Package cache provides the process-local tier of the rates proxy cache.
//
// The Local cache maps a composite request key to a cached value with a
// per-entry expiry. Expiry is evaluated on every read: an entry whose
// ExpiresAt has passed is reported as a miss and is overwritten by the next
// Set. A background sweep (Run) may additionally drop expired entries to
// bound memory, but correctness never depends on it.
//
// # Basic Usage
//
//	local := cache.NewLocal[*rates.Result](cache.LocalConfig{Layer: "local"})
//
//	key := cache.RequestKey{Base: "USD", Targets: []string{"EUR", "JPY"}}
//	if v, ok := local.Get(key.String()); ok {
//		return v
//	}
//	local.Set(key.String(), result, 5*time.Minute)
//
//	// optional sweeper, stopped by cancelling ctx
//	go local.Run(ctx, time.Minute)
//
// # Keys
//
// RequestKey keeps targets in caller order, so ["EUR","JPY"] and
// ["JPY","EUR"] are distinct entries with independent expiry. Setting
// Normalize sorts and de-duplicates the targets first.
//
// # Metrics
//
//   - fx_cache_hits_total{layer}
//   - fx_cache_misses_total{layer, reason} - reason is absent, expired, stale or error
//   - fx_cache_entries{layer}
//   - fx_cache_evictions_total{layer}
package cache
