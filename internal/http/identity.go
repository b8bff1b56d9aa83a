package http

import (
	"context"
	"net/http"

	"financeflow/internal/auth"
	"financeflow/internal/ledger"
	"financeflow/internal/log"
)

type identityKey struct{}

// identify authenticates a bearer token when one is sent. A request without
// an Authorization header proceeds anonymously; a bad token is rejected.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := auth.BearerToken(header)
		if !ok {
			Unauthorized("malformed Authorization header").Write(w)
			return
		}
		id, err := s.auth.Authenticate(token)
		if err != nil {
			Unauthorized(err.Error()).Write(w)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, id)
		logger := log.FromContext(ctx).With(log.FieldOwner, id.UserID)
		next.ServeHTTP(w, r.WithContext(log.NewContext(ctx, logger)))
	})
}

func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identityFrom(r.Context()); !ok {
			Unauthorized("sign in required").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok
}

// manager returns the signed-in owner's ledger, or the shared empty ledger
// for anonymous reads.
func (s *Server) manager(r *http.Request) (*ledger.Manager, error) {
	id, ok := identityFrom(r.Context())
	if !ok {
		return s.anonymous, nil
	}
	return s.sessions.Get(r.Context(), id.UserID)
}
