package rates

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/fx-rates-proxy/pkg/cache"
)

// Currency list TTLs.
const (
	DefaultCurrenciesTTL        = time.Hour
	DefaultCurrenciesFailureTTL = 5 * time.Minute
)

const currenciesKey = "currencies"

// CurrencyListConfig configures a CurrencyList.
type CurrencyListConfig struct {
	// TTL applies after a successful fetch (default 1h).
	TTL time.Duration

	// FailureTTL applies to the empty list cached after a failure
	// (default 5m).
	FailureTTL time.Duration

	// Clock returns the current time (default time.Now).
	Clock func() time.Time

	Logger zerolog.Logger
}

// CurrencyList caches the provider's currency codes as a single value.
// It is fail-soft: a failed fetch yields an empty list, cached briefly.
type CurrencyList struct {
	fetcher    CurrencyFetcher
	entry      *cache.Local[[]string]
	ttl        time.Duration
	failureTTL time.Duration
	logger     zerolog.Logger
}

// NewCurrencyList creates an empty CurrencyList.
func NewCurrencyList(fetcher CurrencyFetcher, cfg CurrencyListConfig) *CurrencyList {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCurrenciesTTL
	}
	if cfg.FailureTTL <= 0 {
		cfg.FailureTTL = DefaultCurrenciesFailureTTL
	}
	return &CurrencyList{
		fetcher: fetcher,
		entry: cache.NewLocal[[]string](cache.LocalConfig{
			Layer:  LayerCurrencies,
			Clock:  cfg.Clock,
			Logger: cfg.Logger,
		}),
		ttl:        cfg.TTL,
		failureTTL: cfg.FailureTTL,
		logger:     cfg.Logger,
	}
}

// Supported returns the supported currency codes in provider order. It never
// fails; callers must accept an empty list. The returned slice must not be
// modified.
func (l *CurrencyList) Supported(ctx context.Context) []string {
	if codes, ok := l.entry.Get(currenciesKey); ok {
		return codes
	}

	codes, err := l.fetcher.FetchCurrencyList(ctx)
	if err != nil {
		l.logger.Warn().
			Err(err).
			Dur("retry_in", l.failureTTL).
			Msg("Failed to fetch currency list, serving empty list")
		empty := []string{}
		l.entry.Set(currenciesKey, empty, l.failureTTL)
		return empty
	}

	codes = NormalizeCodes(codes)
	l.entry.Set(currenciesKey, codes, l.ttl)
	l.logger.Info().Int("count", len(codes)).Msg("Currency list refreshed")
	return codes
}

// Close drops the cached list. A later Supported call fetches again.
func (l *CurrencyList) Close() {
	l.entry.Close()
}
