// Package store defines the persistent storage used by the rates proxy: the
// durable rate cache (rates_cache) and visitor profiles (users).
//
// Implementations live in sub-packages: memory, redisstore and postgres.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an insert collided with an existing row.
	ErrAlreadyExists = errors.New("already exists")
)

// RateEntry is one row of rates_cache. The pair is ordered: USD→EUR and
// EUR→USD are separate entries.
type RateEntry struct {
	Base      string    `json:"base_currency"`
	Target    string    `json:"target_currency"`
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is one row of users.
type User struct {
	ID           string    `json:"user_id"`
	BaseCurrency string    `json:"base_currency"`
	Favorites    []string  `json:"favorites"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch holds the fields of a partial profile update. Nil fields are
// left unchanged.
type UserPatch struct {
	BaseCurrency *string
	Favorites    []string
}

// Apply returns u with the patch applied and UpdatedAt set.
func (p UserPatch) Apply(u User, updatedAt time.Time) User {
	if p.BaseCurrency != nil {
		u.BaseCurrency = *p.BaseCurrency
	}
	if p.Favorites != nil {
		u.Favorites = make([]string, len(p.Favorites))
		copy(u.Favorites, p.Favorites)
	}
	u.UpdatedAt = updatedAt
	return u
}

// RateRepository stores the last fetched rate per (base, target).
type RateRepository interface {
	// GetRate returns ErrNotFound when the pair was never stored.
	GetRate(ctx context.Context, base, target string) (RateEntry, error)

	// UpsertRate inserts or replaces the entry for its pair. Last write wins.
	UpsertRate(ctx context.Context, entry RateEntry) error
}

// UserRepository stores visitor profiles.
type UserRepository interface {
	// GetUser returns ErrNotFound for an unknown id.
	GetUser(ctx context.Context, id string) (User, error)

	// InsertUser returns ErrAlreadyExists when the id is taken.
	InsertUser(ctx context.Context, user User) error

	// UpdateUser returns ErrNotFound for an unknown id.
	UpdateUser(ctx context.Context, id string, patch UserPatch, updatedAt time.Time) error
}

// Store combines both repositories with connection lifecycle.
type Store interface {
	RateRepository
	UserRepository

	Ping(ctx context.Context) error
	Close() error
}
