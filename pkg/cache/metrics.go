package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Miss reasons used as the "reason" label of CacheMisses.
const (
	MissAbsent  = "absent"
	MissExpired = "expired"
	MissStale   = "stale"
	MissError   = "error"
)

var (
	// CacheHits tracks cache hits by layer ("local", "durable", "currencies")
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fx_cache_hits_total",
			Help: "Total number of rate cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses by layer and reason
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fx_cache_misses_total",
			Help: "Total number of rate cache misses",
		},
		[]string{"layer", "reason"},
	)

	// CacheEntries tracks the number of entries held by in-memory layers
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fx_cache_entries",
			Help: "Current number of entries in an in-memory cache layer",
		},
		[]string{"layer"},
	)

	// CacheEvictions tracks entries removed by the background sweep
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fx_cache_evictions_total",
			Help: "Total number of expired entries removed by the sweeper",
		},
		[]string{"layer"},
	)
)
