// Package memory implements store.Store in process memory. It backs the
// default development configuration and unit tests; data is lost on exit.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/fx-rates-proxy/pkg/store"
)

type pairKey struct {
	base, target string
}

// Store is an in-memory store.Store.
type Store struct {
	mu    sync.RWMutex
	rates map[pairKey]store.RateEntry
	users map[string]store.User
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		rates: make(map[pairKey]store.RateEntry),
		users: make(map[string]store.User),
	}
}

func (s *Store) GetRate(_ context.Context, base, target string) (store.RateEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.rates[pairKey{base, target}]
	if !ok {
		return store.RateEntry{}, store.ErrNotFound
	}
	return entry, nil
}

func (s *Store) UpsertRate(_ context.Context, entry store.RateEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rates[pairKey{entry.Base, entry.Target}] = entry
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return cloneUser(user), nil
}

func (s *Store) InsertUser(_ context.Context, user store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return store.ErrAlreadyExists
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) UpdateUser(_ context.Context, id string, patch store.UserPatch, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	s.users[id] = patch.Apply(user, updatedAt)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// RateCount returns the number of stored rate entries.
func (s *Store) RateCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rates)
}

func cloneUser(u store.User) store.User {
	if u.Favorites != nil {
		favorites := make([]string, len(u.Favorites))
		copy(favorites, u.Favorites)
		u.Favorites = favorites
	}
	return u
}
