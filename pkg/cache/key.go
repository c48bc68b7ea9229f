package cache

import (
	"sort"
	"strings"
)

// RequestKey identifies one rate lookup in the process-local cache.
type RequestKey struct {
	// Base is the normalized base currency code.
	Base string

	// Targets are the normalized target codes in caller order.
	Targets []string

	// Normalize sorts and de-duplicates Targets before keying.
	Normalize bool
}

// String generates the cache key.
// Format: rates:BASE:T1,T2,...
//
// Example:
//
//	rates:USD:EUR,JPY
func (k RequestKey) String() string {
	targets := k.Targets
	if k.Normalize {
		targets = normalizeTargets(targets)
	}
	return "rates:" + k.Base + ":" + strings.Join(targets, ",")
}

func normalizeTargets(targets []string) []string {
	out := make([]string, 0, len(targets))
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
