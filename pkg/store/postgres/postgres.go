// Package postgres implements store.Store on PostgreSQL using pgxpool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sternrassler/fx-rates-proxy/pkg/store"
)

const backend = "postgres"

//go:embed schema.sql
var schema string

const (
	selectRate = `SELECT base_currency, target_currency, rate, updated_at
FROM rates_cache WHERE base_currency = $1 AND target_currency = $2`

	upsertRate = `INSERT INTO rates_cache (base_currency, target_currency, rate, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (base_currency, target_currency)
DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at`

	selectUser = `SELECT user_id, base_currency, favorites, created_at, updated_at
FROM users WHERE user_id = $1`

	insertUser = `INSERT INTO users (user_id, base_currency, favorites, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`

	// NULL parameters leave the column untouched.
	updateUser = `UPDATE users SET
    base_currency = COALESCE($2, base_currency),
    favorites     = COALESCE($3, favorites),
    updated_at    = $4
WHERE user_id = $1`
)

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	db *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New wraps an existing pool.
func New(db *pgxpool.Pool) *Store {
	if db == nil {
		panic("postgres pool cannot be nil")
	}
	return &Store{db: db}
}

// Open connects to dsn, verifies the connection and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	s := New(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) GetRate(ctx context.Context, base, target string) (store.RateEntry, error) {
	var entry store.RateEntry
	err := s.db.QueryRow(ctx, selectRate, base, target).
		Scan(&entry.Base, &entry.Target, &entry.Rate, &entry.UpdatedAt)
	if err != nil {
		return store.RateEntry{}, s.mapErr("get_rate", err)
	}
	return entry, nil
}

func (s *Store) UpsertRate(ctx context.Context, entry store.RateEntry) error {
	if _, err := s.db.Exec(ctx, upsertRate, entry.Base, entry.Target, entry.Rate, entry.UpdatedAt); err != nil {
		return s.mapErr("upsert_rate", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (store.User, error) {
	var user store.User
	err := s.db.QueryRow(ctx, selectUser, id).
		Scan(&user.ID, &user.BaseCurrency, &user.Favorites, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return store.User{}, s.mapErr("get_user", err)
	}
	if user.Favorites == nil {
		user.Favorites = []string{}
	}
	return user, nil
}

func (s *Store) InsertUser(ctx context.Context, user store.User) error {
	favorites := user.Favorites
	if favorites == nil {
		favorites = []string{}
	}

	_, err := s.db.Exec(ctx, insertUser, user.ID, user.BaseCurrency, favorites, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return s.mapErr("insert_user", err)
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch store.UserPatch, updatedAt time.Time) error {
	// a nil slice encodes as NULL and keeps the stored favorites
	tag, err := s.db.Exec(ctx, updateUser, id, patch.BaseCurrency, patch.Favorites, updatedAt)
	if err != nil {
		return s.mapErr("update_user", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() error {
	s.db.Close()
	return nil
}

// mapErr translates driver errors into store sentinels and counts the rest.
func (s *Store) mapErr(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return store.ErrAlreadyExists
	}

	store.Errors.WithLabelValues(backend, operation).Inc()
	return fmt.Errorf("postgres %s: %w", operation, err)
}
