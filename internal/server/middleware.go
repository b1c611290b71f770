package server

import (
	"context"
	"errors"
	"net/http"

	"coachfit/internal/auth"
	"coachfit/internal/i18n"
)

type ctxKey string

const claimsContextKey ctxKey = "claims"

// requireToken rejects requests without a valid, unexpired bearer token and
// stores the token claims in the request context.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := auth.ParseBearer(r.Header.Get("Authorization"))
		if err != nil {
			var e *auth.Error
			if errors.As(err, &e) {
				s.writeFailure(w, r, http.StatusBadRequest, string(e.Kind), e.Key)
				return
			}
			s.writeInternal(w, r, err)
			return
		}

		claims, err := s.Tokens.Validate(raw)
		if err != nil {
			s.writeFailure(w, r, http.StatusUnauthorized, typeUnauthorized, "token.invalid")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireRoles(roles []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicAccess(roles) {
				next.ServeHTTP(w, r)
				return
			}

			claims := claimsFromContext(r.Context())
			if claims == nil {
				s.writeFailure(w, r, http.StatusUnauthorized, typeUnauthorized, "token.invalid")
				return
			}

			if !roleAllowed(roles, claims.Role) {
				s.writeFailure(w, r, http.StatusForbidden, string(auth.KindForbidden), "auth.forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	if val, ok := ctx.Value(claimsContextKey).(*auth.Claims); ok {
		return val
	}
	return nil
}

// withLocale resolves Accept-Language once per request.
func withLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := i18n.WithLocale(r.Context(), i18n.LocaleFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
