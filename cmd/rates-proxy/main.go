package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/fx-rates-proxy/internal/config"
	"github.com/Sternrassler/fx-rates-proxy/internal/httpapi"
	"github.com/Sternrassler/fx-rates-proxy/pkg/cache"
	"github.com/Sternrassler/fx-rates-proxy/pkg/logging"
	"github.com/Sternrassler/fx-rates-proxy/pkg/rates"
	"github.com/Sternrassler/fx-rates-proxy/pkg/store"
	"github.com/Sternrassler/fx-rates-proxy/pkg/store/memory"
	"github.com/Sternrassler/fx-rates-proxy/pkg/store/postgres"
	"github.com/Sternrassler/fx-rates-proxy/pkg/store/redisstore"
	"github.com/Sternrassler/fx-rates-proxy/pkg/upstream"
	"github.com/Sternrassler/fx-rates-proxy/pkg/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: logging.DefaultConfig().Service,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// app is the wired service.
type app struct {
	handler    http.Handler
	local      *cache.Local[*rates.Result]
	currencies *rates.CurrencyList
	store      store.Store
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info().Str("backend", cfg.StoreBackend).Msg("Store connected")

	a, err := newApp(cfg, st, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go a.local.Run(sweepCtx, cfg.SweepInterval)

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
	}
	return serve(ctx, cfg, a.handler, listener, logger)
}

// newApp wires the caches, resolver and HTTP handler over st.
func newApp(cfg *config.Config, st store.Store, logger zerolog.Logger) (*app, error) {
	clientCfg := upstream.DefaultConfig(cfg.CurrencyAPIURL)
	clientCfg.UserAgent = cfg.UserAgent
	clientCfg.Timeout = cfg.UpstreamTimeout

	client, err := upstream.New(clientCfg, logger.With().Str("component", "upstream").Logger())
	if err != nil {
		return nil, fmt.Errorf("create provider client: %w", err)
	}

	cacheLogger := logger.With().Str("component", "cache").Logger()
	local := cache.NewLocal[*rates.Result](cache.LocalConfig{Layer: rates.LayerLocal, Logger: cacheLogger})
	durable := rates.NewDurableCache(st, rates.DurableConfig{MaxAge: cfg.RateMaxAge, Logger: cacheLogger})
	currencies := rates.NewCurrencyList(client, rates.CurrencyListConfig{
		TTL:        cfg.CurrenciesTTL,
		FailureTTL: cfg.CurrenciesFailureTTL,
		Logger:     cacheLogger,
	})

	resolver := rates.NewResolver(local, durable, currencies, client, rates.ResolverConfig{
		DefaultBase:         cfg.DefaultBaseCurrency,
		RequestTTL:          cfg.RequestTTL,
		NormalizeTargets:    cfg.NormalizeTargets,
		DeduplicateInFlight: cfg.DeduplicateInFlight,
		Logger:              logger.With().Str("component", "rates").Logger(),
	})

	userService := users.NewService(st, users.Config{
		Logger: logger.With().Str("component", "users").Logger(),
	})

	srv := httpapi.New(httpapi.Config{
		Rates:          resolver,
		Currencies:     currencies,
		Users:          userService,
		Store:          st,
		IdentitySource: cfg.IdentitySource,
		Logger:         logger.With().Str("component", "http").Logger(),
	})

	return &app{handler: srv.Routes(), local: local, currencies: currencies, store: st}, nil
}

// close drops the in-memory caches.
func (a *app) close(logger zerolog.Logger) {
	logger.Info().Int("entries", a.local.Len()).Msg("Dropping process-local cache")
	a.local.Close()
	a.currencies.Close()
}

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendRedis:
		s, err := redisstore.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// serve runs the HTTP server on listener until ctx is cancelled, then
// shuts down gracefully.
func serve(ctx context.Context, cfg *config.Config, handler http.Handler, listener net.Listener, logger zerolog.Logger) error {
	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", listener.Addr().String()).
			Str("provider", cfg.CurrencyAPIURL).
			Str("identity", cfg.IdentitySource).
			Msg("Starting rates proxy server")
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
