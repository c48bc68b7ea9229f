// Package storetest provides a behavioral test suite shared by every
// store.Store implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/fx-rates-proxy/pkg/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("GetRate_NotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetRate(context.Background(), "USD", "EUR")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpsertRate_ThenGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		at := fixedTime()

		entry := store.RateEntry{Base: "USD", Target: "EUR", Rate: 0.92, UpdatedAt: at}
		if err := s.UpsertRate(ctx, entry); err != nil {
			t.Fatalf("UpsertRate failed: %v", err)
		}

		got, err := s.GetRate(ctx, "USD", "EUR")
		if err != nil {
			t.Fatalf("GetRate failed: %v", err)
		}
		if got.Base != "USD" || got.Target != "EUR" || got.Rate != 0.92 {
			t.Errorf("GetRate = %+v", got)
		}
		if !got.UpdatedAt.Equal(at) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, at)
		}
	})

	t.Run("UpsertRate_LastWriteWins", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		at := fixedTime()

		_ = s.UpsertRate(ctx, store.RateEntry{Base: "USD", Target: "EUR", Rate: 0.90, UpdatedAt: at})
		if err := s.UpsertRate(ctx, store.RateEntry{Base: "USD", Target: "EUR", Rate: 0.93, UpdatedAt: at.Add(time.Hour)}); err != nil {
			t.Fatalf("second UpsertRate failed: %v", err)
		}

		got, err := s.GetRate(ctx, "USD", "EUR")
		if err != nil {
			t.Fatalf("GetRate failed: %v", err)
		}
		if got.Rate != 0.93 {
			t.Errorf("Rate = %v, want 0.93", got.Rate)
		}
		if !got.UpdatedAt.Equal(at.Add(time.Hour)) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, at.Add(time.Hour))
		}
	})

	t.Run("UpsertRate_DirectionsAreIndependent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_ = s.UpsertRate(ctx, store.RateEntry{Base: "USD", Target: "EUR", Rate: 0.92, UpdatedAt: fixedTime()})

		if _, err := s.GetRate(ctx, "EUR", "USD"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("reverse pair: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("InsertUser_ThenGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		user := sampleUser()

		if err := s.InsertUser(ctx, user); err != nil {
			t.Fatalf("InsertUser failed: %v", err)
		}

		got, err := s.GetUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if got.ID != user.ID || got.BaseCurrency != "USD" {
			t.Errorf("GetUser = %+v", got)
		}
		if len(got.Favorites) != 0 {
			t.Errorf("Favorites = %v, want empty", got.Favorites)
		}
		if !got.CreatedAt.Equal(user.CreatedAt) || !got.UpdatedAt.Equal(user.UpdatedAt) {
			t.Errorf("timestamps = %v/%v, want %v", got.CreatedAt, got.UpdatedAt, user.CreatedAt)
		}
	})

	t.Run("InsertUser_Duplicate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		user := sampleUser()

		if err := s.InsertUser(ctx, user); err != nil {
			t.Fatalf("InsertUser failed: %v", err)
		}
		if err := s.InsertUser(ctx, user); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("Expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("GetUser_NotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetUser(context.Background(), "00000000-0000-4000-8000-000000000000")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateUser_Patch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		user := sampleUser()
		_ = s.InsertUser(ctx, user)

		eur := "EUR"
		later := user.UpdatedAt.Add(time.Hour)
		if err := s.UpdateUser(ctx, user.ID, store.UserPatch{BaseCurrency: &eur, Favorites: []string{"JPY", "GBP"}}, later); err != nil {
			t.Fatalf("UpdateUser failed: %v", err)
		}

		got, err := s.GetUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if got.BaseCurrency != "EUR" {
			t.Errorf("BaseCurrency = %q, want EUR", got.BaseCurrency)
		}
		if len(got.Favorites) != 2 || got.Favorites[0] != "JPY" || got.Favorites[1] != "GBP" {
			t.Errorf("Favorites = %v, want [JPY GBP]", got.Favorites)
		}
		if !got.UpdatedAt.Equal(later) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
		}
		if !got.CreatedAt.Equal(user.CreatedAt) {
			t.Errorf("CreatedAt changed to %v", got.CreatedAt)
		}
	})

	t.Run("UpdateUser_PartialKeepsFavorites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		user := sampleUser()
		user.Favorites = []string{"CHF"}
		_ = s.InsertUser(ctx, user)

		gbp := "GBP"
		if err := s.UpdateUser(ctx, user.ID, store.UserPatch{BaseCurrency: &gbp}, user.UpdatedAt.Add(time.Minute)); err != nil {
			t.Fatalf("UpdateUser failed: %v", err)
		}

		got, _ := s.GetUser(ctx, user.ID)
		if len(got.Favorites) != 1 || got.Favorites[0] != "CHF" {
			t.Errorf("Favorites = %v, want [CHF]", got.Favorites)
		}
	})

	t.Run("UpdateUser_NotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.UpdateUser(context.Background(), "00000000-0000-4000-8000-000000000000", store.UserPatch{}, fixedTime())
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

func fixedTime() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func sampleUser() store.User {
	return store.User{
		ID:           "3b0f5c2e-8f7a-4c1e-9d2b-6a4e1f0c7b55",
		BaseCurrency: "USD",
		Favorites:    []string{},
		CreatedAt:    fixedTime(),
		UpdatedAt:    fixedTime(),
	}
}
