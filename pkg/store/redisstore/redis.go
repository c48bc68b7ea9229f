// Package redisstore implements store.Store on Redis.
//
// Rates are stored as JSON under rates_cache:<BASE>:<TARGET> and profiles
// under users:<id>. Keys carry no TTL: rate staleness is decided by the
// reader from updated_at, and entries are overwritten, never deleted.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/fx-rates-proxy/pkg/store"
)

const backend = "redis"

const (
	rateKeyPrefix = "rates_cache:"
	userKeyPrefix = "users:"
)

// maxUpdateAttempts bounds optimistic-lock retries in UpdateUser.
const maxUpdateAttempts = 3

// ErrInvalidEntry indicates a stored value could not be decoded.
var ErrInvalidEntry = errors.New("invalid stored entry")

// Store is a Redis-backed store.Store.
type Store struct {
	redis *redis.Client
}

var _ store.Store = (*Store)(nil)

// New wraps an existing client.
func New(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{redis: redisClient}
}

// Open connects to addr, which is either host:port or a redis:// URL, and
// verifies the connection.
func Open(ctx context.Context, addr string) (*Store, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return New(client), nil
}

// RateKey returns the Redis key of a rate entry.
// Format: rates_cache:BASE:TARGET
func RateKey(base, target string) string {
	return rateKeyPrefix + base + ":" + target
}

// UserKey returns the Redis key of a profile.
func UserKey(id string) string {
	return userKeyPrefix + id
}

func (s *Store) GetRate(ctx context.Context, base, target string) (store.RateEntry, error) {
	var entry store.RateEntry
	if err := s.getJSON(ctx, "get_rate", RateKey(base, target), &entry); err != nil {
		return store.RateEntry{}, err
	}
	return entry, nil
}

func (s *Store) UpsertRate(ctx context.Context, entry store.RateEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		store.Errors.WithLabelValues(backend, "upsert_rate").Inc()
		return fmt.Errorf("marshal rate entry: %w", err)
	}

	if err := s.redis.Set(ctx, RateKey(entry.Base, entry.Target), data, 0).Err(); err != nil {
		store.Errors.WithLabelValues(backend, "upsert_rate").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (store.User, error) {
	var user store.User
	if err := s.getJSON(ctx, "get_user", UserKey(id), &user); err != nil {
		return store.User{}, err
	}
	return user, nil
}

func (s *Store) InsertUser(ctx context.Context, user store.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		store.Errors.WithLabelValues(backend, "insert_user").Inc()
		return fmt.Errorf("marshal user: %w", err)
	}

	created, err := s.redis.SetNX(ctx, UserKey(user.ID), data, 0).Result()
	if err != nil {
		store.Errors.WithLabelValues(backend, "insert_user").Inc()
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !created {
		return store.ErrAlreadyExists
	}
	return nil
}

// UpdateUser applies patch under WATCH so a concurrent writer forces a
// re-read instead of being overwritten with stale fields.
func (s *Store) UpdateUser(ctx context.Context, id string, patch store.UserPatch, updatedAt time.Time) error {
	key := UserKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("redis get: %w", err)
		}

		var user store.User
		if err := json.Unmarshal(data, &user); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}

		updated, err := json.Marshal(patch.Apply(user, updatedAt))
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	var err error
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err = s.redis.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	switch {
	case err == nil, errors.Is(err, store.ErrNotFound):
		return err
	default:
		store.Errors.WithLabelValues(backend, "update_user").Inc()
		return fmt.Errorf("update user %s: %w", id, err)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.redis.Close()
}

func (s *Store) getJSON(ctx context.Context, operation, key string, v any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.ErrNotFound
		}
		store.Errors.WithLabelValues(backend, operation).Inc()
		return fmt.Errorf("redis get: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		store.Errors.WithLabelValues(backend, operation).Inc()
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return nil
}
