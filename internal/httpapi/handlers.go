package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Sternrassler/fx-rates-proxy/pkg/users"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.currencies.Supported(r.Context()))
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var targets []string
	if raw := query.Get("targets"); raw != "" {
		targets = strings.Split(raw, ",")
	}

	result, err := s.rates.Resolve(r.Context(), query.Get("base"), targets)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch exchange rates")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	v := visitorFrom(r.Context())
	if !v.Valid {
		s.writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	user, err := s.users.Get(r.Context(), v.ID)
	if err != nil {
		s.writeUserError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	v := visitorFrom(r.Context())
	if v.Minted {
		s.writeError(w, http.StatusUnauthorized, "User not identified")
		return
	}
	if !v.Valid {
		s.writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var in users.UpdateInput
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&in)
	if err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.users.Update(r.Context(), v.ID, in); err != nil {
		s.writeUserError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeUserError maps users errors to responses.
func (s *Server) writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, users.ErrInvalidID):
		s.writeError(w, http.StatusBadRequest, "Invalid user id")
	case errors.Is(err, users.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "User not found")
	default:
		s.logger.Error().Err(err).Msg("User operation failed")
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
