// Package users manages visitor profiles: a preferred base currency and a
// list of favorite currencies, keyed by an opaque UUID visitor id.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/fx-rates-proxy/pkg/rates"
	"github.com/Sternrassler/fx-rates-proxy/pkg/store"
)

var (
	// ErrInvalidID indicates the visitor id is not a UUID.
	ErrInvalidID = errors.New("invalid user id")

	// ErrNotFound indicates no profile exists for the id.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidInput indicates an update failed validation.
	ErrInvalidInput = errors.New("invalid input")
)

const defaultBaseCurrency = "USD"

var validate = validator.New()

// UpdateInput is a partial profile update. A nil or empty BaseCurrency and
// a nil Favorites leave the stored value unchanged; an empty Favorites
// clears the list. Codes are trimmed and upper-cased before validation.
type UpdateInput struct {
	BaseCurrency *string  `json:"base_currency" validate:"omitempty,len=3,uppercase,alpha"`
	Favorites    []string `json:"favorites" validate:"omitempty,dive,len=3,uppercase,alpha"`
}

// Config configures a Service.
type Config struct {
	// DefaultBaseCurrency of newly created profiles (default "USD").
	DefaultBaseCurrency string

	// Clock returns the current time (default time.Now).
	Clock func() time.Time

	Logger zerolog.Logger
}

// Service creates, reads and updates profiles.
type Service struct {
	repo        store.UserRepository
	defaultBase string
	now         func() time.Time
	logger      zerolog.Logger
}

// NewService creates a Service on repo.
func NewService(repo store.UserRepository, cfg Config) *Service {
	if cfg.DefaultBaseCurrency == "" {
		cfg.DefaultBaseCurrency = defaultBaseCurrency
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Service{
		repo:        repo,
		defaultBase: cfg.DefaultBaseCurrency,
		now:         cfg.Clock,
		logger:      cfg.Logger,
	}
}

// ParseID validates a visitor id and returns its canonical lower-case form.
// Only the hyphenated 36 character form is accepted.
func ParseID(id string) (string, error) {
	if len(id) != 36 {
		return "", ErrInvalidID
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}

// NewID mints a visitor id.
func NewID() string {
	return uuid.New().String()
}

// Create mints an id and stores a default profile for it.
func (s *Service) Create(ctx context.Context) (store.User, error) {
	user := s.defaultProfile(NewID())
	if err := s.repo.InsertUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Created user")
	return user, nil
}

// EnsureUser creates a default profile for id unless one exists.
func (s *Service) EnsureUser(ctx context.Context, id string) error {
	id, err := ParseID(id)
	if err != nil {
		return err
	}

	err = s.repo.InsertUser(ctx, s.defaultProfile(id))
	switch {
	case err == nil:
		s.logger.Info().Str("user_id", id).Msg("Created user")
		return nil
	case errors.Is(err, store.ErrAlreadyExists):
		return nil
	default:
		return fmt.Errorf("ensure user: %w", err)
	}
}

// Get returns the profile of id.
func (s *Service) Get(ctx context.Context, id string) (store.User, error) {
	id, err := ParseID(id)
	if err != nil {
		return store.User{}, err
	}

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, ErrNotFound
		}
		return store.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Update applies in to the profile of id and refreshes its updated_at.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) error {
	id, err := ParseID(id)
	if err != nil {
		return err
	}

	in = in.normalize()
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	patch := store.UserPatch{BaseCurrency: in.BaseCurrency, Favorites: in.Favorites}

	if err := s.repo.UpdateUser(ctx, id, patch, s.now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}

	s.logger.Debug().Str("user_id", id).Msg("Updated user")
	return nil
}

// normalize returns a copy with codes normalized. An empty base becomes nil
// so it is neither validated nor written; empty favorites are kept and fail
// validation.
func (in UpdateInput) normalize() UpdateInput {
	out := UpdateInput{}
	if in.BaseCurrency != nil {
		if base := rates.NormalizeCode(*in.BaseCurrency); base != "" {
			out.BaseCurrency = &base
		}
	}
	if in.Favorites != nil {
		out.Favorites = make([]string, len(in.Favorites))
		for i, code := range in.Favorites {
			out.Favorites[i] = rates.NormalizeCode(code)
		}
	}
	return out
}

func (s *Service) defaultProfile(id string) store.User {
	now := s.now().UTC()
	return store.User{
		ID:           id,
		BaseCurrency: s.defaultBase,
		Favorites:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
