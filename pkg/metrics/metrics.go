// Package metrics exposes the Prometheus registry of the rates proxy.
// Metrics are defined in the packages that emit them (upstream, cache, store)
// and registered via promauto; this package documents them and serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registerer every fx_ metric is registered with.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Provider Metrics (pkg/upstream):
//   - fx_upstream_requests_total{operation, status} (Counter): Provider requests by operation and HTTP status
//   - fx_upstream_request_duration_seconds{operation} (Histogram): Provider request duration
//   - fx_upstream_errors_total{class} (Counter): Errors by class (network, client, server, malformed, not_found)
//
// Cache Metrics (pkg/cache, pkg/rates):
//   - fx_cache_hits_total{layer} (Counter): Hits by layer (local, durable, currencies)
//   - fx_cache_misses_total{layer, reason} (Counter): Misses by layer and reason (absent, expired, stale, error)
//   - fx_cache_entries{layer} (Gauge): Entries held by an in-memory layer
//   - fx_cache_evictions_total{layer} (Counter): Expired entries removed by the sweeper
//
// Store Metrics (pkg/store):
//   - fx_store_errors_total{backend, operation} (Counter): Failed store operations
//
// HTTP Metrics (internal/httpapi):
//   - fx_http_requests_total{route, status} (Counter): Served requests
//   - fx_http_request_duration_seconds{route} (Histogram): Handler latency
//
// Example Prometheus Queries:
//
//   # Local cache hit rate
//   sum(rate(fx_cache_hits_total{layer="local"}[5m])) /
//   (sum(rate(fx_cache_hits_total{layer="local"}[5m])) + sum(rate(fx_cache_misses_total{layer="local"}[5m])))
//
//   # Stale durable entries refreshed per second
//   rate(fx_cache_misses_total{layer="durable",reason="stale"}[5m])
//
//   # Provider error rate
//   rate(fx_upstream_errors_total[5m])
//
//   # P95 provider latency
//   histogram_quantile(0.95, rate(fx_upstream_request_duration_seconds_bucket[5m]))
