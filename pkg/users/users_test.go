package users

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/fx-rates-proxy/pkg/store"
	"github.com/Sternrassler/fx-rates-proxy/pkg/store/memory"
)

const knownID = "3b0f5c2e-8f7a-4c1e-9d2b-6a4e1f0c7b55"

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo store.UserRepository) *Service {
	return NewService(repo, Config{
		Clock:  func() time.Time { return testNow },
		Logger: zerolog.Nop(),
	})
}

// failingRepo fails every call with err.
type failingRepo struct{ err error }

func (r failingRepo) GetUser(context.Context, string) (store.User, error) {
	return store.User{}, r.err
}

func (r failingRepo) InsertUser(context.Context, store.User) error { return r.err }

func (r failingRepo) UpdateUser(context.Context, string, store.UserPatch, time.Time) error {
	return r.err
}

func ptr(s string) *string { return &s }

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"canonical", knownID, knownID, false},
		{"upper case", strings.ToUpper(knownID), knownID, false},
		{"empty", "", "", true},
		{"garbage", "not-a-uuid", "", true},
		{"no hyphens", strings.ReplaceAll(knownID, "-", ""), "", true},
		{"braces", "{" + knownID + "}", "", true},
		{"urn", "urn:uuid:" + knownID, "", true},
		{"bad hex", "zb0f5c2e-8f7a-4c1e-9d2b-6a4e1f0c7b55", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewID_IsValid(t *testing.T) {
	id := NewID()

	got, err := ParseID(id)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.NotEqual(t, id, NewID())
}

func TestCreate_DefaultProfile(t *testing.T) {
	repo := memory.New()
	s := newTestService(repo)

	user, err := s.Create(context.Background())
	require.NoError(t, err)

	_, err = ParseID(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "USD", user.BaseCurrency)
	assert.NotNil(t, user.Favorites)
	assert.Empty(t, user.Favorites)
	assert.Equal(t, testNow, user.CreatedAt)
	assert.Equal(t, testNow, user.UpdatedAt)

	stored, err := repo.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
}

func TestCreate_ConfiguredDefaultBase(t *testing.T) {
	s := NewService(memory.New(), Config{DefaultBaseCurrency: "EUR", Logger: zerolog.Nop()})

	user, err := s.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EUR", user.BaseCurrency)
}

func TestCreate_StoreFailure(t *testing.T) {
	s := newTestService(failingRepo{err: errors.New("connection reset")})

	_, err := s.Create(context.Background())
	assert.Error(t, err)
}

func TestEnsureUser(t *testing.T) {
	repo := memory.New()
	s := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, s.EnsureUser(ctx, knownID))

	eur := "EUR"
	require.NoError(t, repo.UpdateUser(ctx, knownID, store.UserPatch{BaseCurrency: &eur}, testNow))

	// second call keeps the existing profile
	require.NoError(t, s.EnsureUser(ctx, knownID))

	user, err := repo.GetUser(ctx, knownID)
	require.NoError(t, err)
	assert.Equal(t, "EUR", user.BaseCurrency)
}

func TestEnsureUser_InvalidID(t *testing.T) {
	s := newTestService(memory.New())

	assert.ErrorIs(t, s.EnsureUser(context.Background(), "nope"), ErrInvalidID)
}

func TestEnsureUser_StoreFailure(t *testing.T) {
	boom := errors.New("connection reset")
	s := newTestService(failingRepo{err: boom})

	assert.ErrorIs(t, s.EnsureUser(context.Background(), knownID), boom)
}

func TestGet(t *testing.T) {
	repo := memory.New()
	s := newTestService(repo)
	ctx := context.Background()
	require.NoError(t, s.EnsureUser(ctx, knownID))

	user, err := s.Get(ctx, strings.ToUpper(knownID))
	require.NoError(t, err)
	assert.Equal(t, knownID, user.ID)
}

func TestGet_Errors(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name    string
		repo    store.UserRepository
		id      string
		wantErr error
	}{
		{"invalid id", memory.New(), "nope", ErrInvalidID},
		{"unknown id", memory.New(), knownID, ErrNotFound},
		{"store failure", failingRepo{err: boom}, knownID, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService(tt.repo).Get(context.Background(), tt.id)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdate(t *testing.T) {
	created := testNow.Add(-time.Hour)

	tests := []struct {
		name          string
		in            UpdateInput
		wantBase      string
		wantFavorites []string
	}{
		{"base only", UpdateInput{BaseCurrency: ptr("EUR")}, "EUR", []string{"CHF"}},
		{"favorites only", UpdateInput{Favorites: []string{"JPY", "GBP"}}, "USD", []string{"JPY", "GBP"}},
		{"empty base is ignored", UpdateInput{BaseCurrency: ptr("")}, "USD", []string{"CHF"}},
		{"empty base with favorites", UpdateInput{BaseCurrency: ptr(""), Favorites: []string{"EUR"}}, "USD", []string{"EUR"}},
		{"blank base is ignored", UpdateInput{BaseCurrency: ptr("   ")}, "USD", []string{"CHF"}},
		{"empty favorites clears", UpdateInput{Favorites: []string{}}, "USD", []string{}},
		{"both", UpdateInput{BaseCurrency: ptr("GBP"), Favorites: []string{"USD"}}, "GBP", []string{"USD"}},
		{"lower case codes are normalized", UpdateInput{BaseCurrency: ptr(" eur"), Favorites: []string{"jpy", "Gbp "}}, "EUR", []string{"JPY", "GBP"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.New()
			require.NoError(t, repo.InsertUser(context.Background(), store.User{
				ID: knownID, BaseCurrency: "USD", Favorites: []string{"CHF"}, CreatedAt: created, UpdatedAt: created,
			}))

			require.NoError(t, newTestService(repo).Update(context.Background(), knownID, tt.in))

			user, err := repo.GetUser(context.Background(), knownID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, user.BaseCurrency)
			assert.Equal(t, tt.wantFavorites, user.Favorites)
			assert.Equal(t, testNow, user.UpdatedAt)
			assert.Equal(t, created, user.CreatedAt)
		})
	}
}

func TestUpdate_DoesNotModifyInput(t *testing.T) {
	repo := memory.New()
	s := newTestService(repo)
	require.NoError(t, s.EnsureUser(context.Background(), knownID))

	in := UpdateInput{BaseCurrency: ptr("eur"), Favorites: []string{"jpy"}}
	require.NoError(t, s.Update(context.Background(), knownID, in))

	assert.Equal(t, "eur", *in.BaseCurrency)
	assert.Equal(t, []string{"jpy"}, in.Favorites)
}

func TestUpdate_Validation(t *testing.T) {
	repo := memory.New()
	s := newTestService(repo)
	require.NoError(t, s.EnsureUser(context.Background(), knownID))

	tests := []struct {
		name string
		in   UpdateInput
	}{
		{"short base", UpdateInput{BaseCurrency: ptr("EU")}},
		{"long base", UpdateInput{BaseCurrency: ptr("EURO")}},
		{"numeric base", UpdateInput{BaseCurrency: ptr("123")}},
		{"bad favorite", UpdateInput{Favorites: []string{"JPY", "Y3N"}}},
		{"blank favorite", UpdateInput{Favorites: []string{"  "}}},
		{"empty favorite", UpdateInput{Favorites: []string{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Update(context.Background(), knownID, tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	user, err := repo.GetUser(context.Background(), knownID)
	require.NoError(t, err)
	assert.Equal(t, "USD", user.BaseCurrency, "failed validation must not write")
}

func TestUpdate_Errors(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name    string
		repo    store.UserRepository
		id      string
		wantErr error
	}{
		{"invalid id", memory.New(), "nope", ErrInvalidID},
		{"unknown id", memory.New(), knownID, ErrNotFound},
		{"store failure", failingRepo{err: boom}, knownID, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestService(tt.repo).Update(context.Background(), tt.id, UpdateInput{BaseCurrency: ptr("EUR")})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
