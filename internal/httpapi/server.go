// Package httpapi is the HTTP surface of the rates proxy.
package httpapi

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/fx-rates-proxy/pkg/metrics"
	"github.com/Sternrassler/fx-rates-proxy/pkg/rates"
	"github.com/Sternrassler/fx-rates-proxy/pkg/store"
	"github.com/Sternrassler/fx-rates-proxy/pkg/users"
)

// RateResolver answers rate requests. *rates.Resolver implements it.
type RateResolver interface {
	Resolve(ctx context.Context, base string, targets []string) (*rates.Result, error)
}

// CurrencySource lists supported currencies. *rates.CurrencyList implements it.
type CurrencySource interface {
	Supported(ctx context.Context) []string
}

// UserService manages visitor profiles. *users.Service implements it.
type UserService interface {
	Create(ctx context.Context) (store.User, error)
	EnsureUser(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (store.User, error)
	Update(ctx context.Context, id string, in users.UpdateInput) error
}

// Pinger reports backend reachability. store.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config wires a Server.
type Config struct {
	Rates      RateResolver
	Currencies CurrencySource
	Users      UserService

	// Store backs the readiness probe; nil means always ready.
	Store Pinger

	// IdentitySource is "cookie" (default) or "header".
	IdentitySource string

	Logger zerolog.Logger
}

// Server holds the handlers and their collaborators.
type Server struct {
	rates      RateResolver
	currencies CurrencySource
	users      UserService
	store      Pinger
	identity   identitySource
	logger     zerolog.Logger
}

// New creates a Server.
func New(cfg Config) *Server {
	identity := identitySource(cfg.IdentitySource)
	if identity != identityHeader {
		identity = identityCookie
	}
	return &Server{
		rates:      cfg.Rates,
		currencies: cfg.Currencies,
		users:      cfg.Users,
		store:      cfg.Store,
		identity:   identity,
		logger:     cfg.Logger,
	}
}

// Routes returns the root handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/currencies", s.visitor(http.HandlerFunc(s.handleCurrencies)))
	mux.Handle("GET /api/rates", s.visitor(http.HandlerFunc(s.handleRates)))
	mux.Handle("GET /api/user", s.visitor(http.HandlerFunc(s.handleGetUser)))
	mux.Handle("POST /api/user", s.visitor(http.HandlerFunc(s.handleUpdateUser)))

	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	return s.accessLog(s.recoverer(mux))
}
