package httpapi

import (
	"context"
	"net/http"

	"github.com/Sternrassler/fx-rates-proxy/pkg/users"
)

type identitySource string

const (
	identityCookie identitySource = "cookie"
	identityHeader identitySource = "header"
)

const (
	// CookieName carries the visitor id in cookie mode.
	CookieName = "user_id"

	// HeaderName carries the visitor id in header mode.
	HeaderName = "X-User-Id"
)

// Visitor is the identity attached to a request.
type Visitor struct {
	// ID is canonical when Valid, otherwise the raw value sent.
	ID string

	// Minted is set when the client sent no id and a new profile was
	// created for this request.
	Minted bool

	Valid bool
}

type visitorKey struct{}

func visitorFrom(ctx context.Context) Visitor {
	v, _ := ctx.Value(visitorKey{}).(Visitor)
	return v
}

// visitor resolves the visitor id of each request. A missing id is minted
// together with a default profile; in header mode a known-good id is also
// created on first sight.
func (s *Server) visitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := s.readID(r)

		var v Visitor
		switch {
		case raw == "":
			user, err := s.users.Create(r.Context())
			if err != nil {
				s.logger.Error().Err(err).Msg("Error creating user")
				s.writeError(w, http.StatusInternalServerError, "Failed to create user")
				return
			}
			v = Visitor{ID: user.ID, Minted: true, Valid: true}
			s.writeID(w, user.ID)

		default:
			id, err := users.ParseID(raw)
			if err != nil {
				v = Visitor{ID: raw}
				break
			}
			v = Visitor{ID: id, Valid: true}

			if s.identity == identityHeader {
				if err := s.users.EnsureUser(r.Context(), id); err != nil {
					s.logger.Error().Err(err).Str("user_id", id).Msg("Error creating user")
					s.writeError(w, http.StatusInternalServerError, "Failed to create user")
					return
				}
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), visitorKey{}, v)))
	})
}

func (s *Server) readID(r *http.Request) string {
	if s.identity == identityHeader {
		return r.Header.Get(HeaderName)
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) writeID(w http.ResponseWriter, id string) {
	if s.identity == identityHeader {
		w.Header().Set(HeaderName, id)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
