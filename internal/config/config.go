// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/fx-rates-proxy/pkg/logging"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Visitor identity sources.
const (
	IdentityCookie = "cookie"
	IdentityHeader = "header"
)

// Config is the complete service configuration.
type Config struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	CurrencyAPIURL  string
	UpstreamTimeout time.Duration
	UserAgent       string

	DefaultBaseCurrency string

	RequestTTL           time.Duration
	RateMaxAge           time.Duration
	CurrenciesTTL        time.Duration
	CurrenciesFailureTTL time.Duration
	SweepInterval        time.Duration
	NormalizeTargets     bool
	DeduplicateInFlight  bool

	StoreBackend string
	RedisURL     string
	PostgresDSN  string

	IdentitySource string

	LogLevel  logging.LogLevel
	LogPretty bool
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var errs []error
	env := &reader{errs: &errs}

	cfg := &Config{
		Port:            env.str("PORT", "3000"),
		ReadTimeout:     env.duration("SERVER_READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    env.duration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		IdleTimeout:     env.duration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout: env.duration("SHUTDOWN_TIMEOUT", 10*time.Second),

		CurrencyAPIURL:  env.str("CURRENCY_API_URL", "https://api.frankfurter.app"),
		UpstreamTimeout: env.duration("UPSTREAM_TIMEOUT", 10*time.Second),
		UserAgent:       env.str("USER_AGENT", "fx-rates-proxy/0.1.0"),

		DefaultBaseCurrency: strings.ToUpper(env.str("DEFAULT_BASE_CURRENCY", "USD")),

		RequestTTL:           env.duration("CACHE_REQUEST_TTL", 5*time.Minute),
		RateMaxAge:           env.duration("CACHE_RATE_MAX_AGE", 24*time.Hour),
		CurrenciesTTL:        env.duration("CACHE_CURRENCIES_TTL", time.Hour),
		CurrenciesFailureTTL: env.duration("CACHE_CURRENCIES_FAILURE_TTL", 5*time.Minute),
		SweepInterval:        env.duration("CACHE_SWEEP_INTERVAL", time.Minute),
		NormalizeTargets:     env.boolean("CACHE_NORMALIZE_TARGETS", false),
		DeduplicateInFlight:  env.boolean("CACHE_DEDUPLICATE_INFLIGHT", false),

		StoreBackend: strings.ToLower(env.str("STORE_BACKEND", BackendMemory)),
		RedisURL:     env.str("REDIS_URL", "localhost:6379"),
		PostgresDSN:  env.str("POSTGRES_DSN", ""),

		IdentitySource: strings.ToLower(env.str("IDENTITY_SOURCE", IdentityCookie)),

		LogPretty: env.boolean("LOG_PRETTY", false),
	}

	level, err := logging.ParseLevel(env.str("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks cross-field constraints and enumerations.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required when STORE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be memory, redis or postgres (got %q)", c.StoreBackend))
	}

	switch c.IdentitySource {
	case IdentityCookie, IdentityHeader:
	default:
		errs = append(errs, fmt.Errorf("IDENTITY_SOURCE must be cookie or header (got %q)", c.IdentitySource))
	}

	if c.CurrencyAPIURL == "" {
		errs = append(errs, errors.New("CURRENCY_API_URL is required"))
	}
	if len(c.DefaultBaseCurrency) != 3 {
		errs = append(errs, fmt.Errorf("DEFAULT_BASE_CURRENCY must be a 3 letter code (got %q)", c.DefaultBaseCurrency))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, errors.New("CACHE_SWEEP_INTERVAL must not be negative"))
	}

	for name, d := range map[string]time.Duration{
		"CACHE_REQUEST_TTL":            c.RequestTTL,
		"CACHE_RATE_MAX_AGE":           c.RateMaxAge,
		"CACHE_CURRENCIES_TTL":         c.CurrenciesTTL,
		"CACHE_CURRENCIES_FAILURE_TTL": c.CurrenciesFailureTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive (got %s)", name, d))
		}
	}

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// reader parses environment variables, collecting parse errors.
type reader struct {
	errs *[]error
}

func (r *reader) str(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (r *reader) duration(key string, defaultValue time.Duration) time.Duration {
	value := r.str(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*r.errs = append(*r.errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return d
}

func (r *reader) boolean(key string, defaultValue bool) bool {
	value := r.str(key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*r.errs = append(*r.errs, fmt.Errorf("%s: invalid boolean %q", key, value))
		return defaultValue
	}
	return b
}
