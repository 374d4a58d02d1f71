// Package middleware provides the HTTP middleware chain: session
// authentication, diagram and team authorization, plan gates, pagination,
// request logging and rate limiting.
package middleware

import (
	"net/http"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/auth"
	"github.com/layr-ng/layr-api/pkg/contextkeys"
	"github.com/layr-ng/layr-api/pkg/httputil"
)

// Session authenticates requests from the session cookie.
type Session struct {
	tokens *auth.TokenManager
}

// NewSession creates the session middleware.
func NewSession(tokens *auth.TokenManager) *Session {
	return &Session{tokens: tokens}
}

// ActorFromContext returns the authenticated actor set by the session
// middleware.
func ActorFromContext(r *http.Request) (auth.Actor, bool) {
	actor, ok := contextkeys.Value(r.Context(), contextkeys.ActorKey).(auth.Actor)
	return actor, ok
}

func (s *Session) authenticate(r *http.Request) (auth.Actor, error) {
	token, err := s.tokens.TokenFromRequest(r)
	if err != nil {
		return auth.Actor{}, err
	}
	return s.tokens.VerifySession(token)
}

// RequireUser admits only authenticated regular users.
func (s *Session) RequireUser(next http.Handler) http.Handler {
	return s.require(auth.ActorUser, next)
}

// RequireAdmin admits only platform administrators.
func (s *Session) RequireAdmin(next http.Handler) http.Handler {
	return s.require(auth.ActorAdmin, next)
}

func (s *Session) require(kind auth.ActorKind, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := s.authenticate(r)
		if err != nil {
			httputil.WriteAPIError(w, err)
			return
		}
		if actor.Kind != kind {
			httputil.WriteAPIError(w, apierrors.Unauthorized("Authentication required"))
			return
		}
		ctx := contextkeys.WithValue(r.Context(), contextkeys.ActorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
