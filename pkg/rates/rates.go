// Package rates resolves exchange rates through a two-tier read-through
// cache: a short-lived process-local cache keyed by request, and a durable
// per-pair cache with a longer staleness horizon, in front of the upstream
// provider.
package rates

import (
	"context"
	"strings"
)

// DefaultBase is used when a request names no base currency.
const DefaultBase = "USD"

// Cache layer labels used in metrics and logs.
const (
	LayerLocal      = "local"
	LayerDurable    = "durable"
	LayerCurrencies = "currencies"
)

// Result is the answer to one rate request.
type Result struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// RateFetcher quotes a base currency against a set of symbols.
// *upstream.Client implements it.
type RateFetcher interface {
	FetchLatest(ctx context.Context, base string, symbols []string) (map[string]float64, error)
}

// CurrencyFetcher lists the currencies offered by the provider.
// *upstream.Client implements it.
type CurrencyFetcher interface {
	FetchCurrencyList(ctx context.Context) ([]string, error)
}

// NormalizeCode trims and upper-cases a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeCodes normalizes every code and drops empty ones, keeping order.
func NormalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if n := NormalizeCode(c); n != "" {
			out = append(out, n)
		}
	}
	return out
}
