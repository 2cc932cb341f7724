package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/user/usermgmt-go/apperror"
)

// UserResolver resolves a verified token subject to a full user record.
// It is satisfied by the user directory; absence is signalled with a nil user,
// not an error, so the gate decides how to respond.
type UserResolver interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// RequireAuth returns middleware that guards protected routes. It extracts the
// bearer token from the Authorization header, verifies it, and resolves the
// subject against the user directory. Any failure ends the request with 401
// and a WWW-Authenticate challenge; on success the user record is placed in
// the request context for downstream handlers.
func RequireAuth(issuer *Issuer, resolver UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(r, issuer, resolver)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContextWithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth is the tolerant variant of RequireAuth for endpoints that
// behave differently for anonymous and authenticated callers. On any failure
// the request simply proceeds without a user in the context; no error is
// ever returned to the client.
func OptionalAuth(issuer *Issuer, resolver UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, err := authenticate(r, issuer, resolver); err == nil {
				r = r.WithContext(NewContextWithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate runs the full bearer-credential check for a request: header
// extraction, token verification, and subject resolution.
func authenticate(r *http.Request, issuer *Issuer, resolver UserResolver) (*User, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, apperror.NewAuthError("Authorization header is missing", nil)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, apperror.NewAuthError("Authorization header format must be Bearer {token}", nil)
	}

	subject, err := issuer.Verify(parts[1])
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, apperror.NewAuthError("Token has expired", err)
		}
		return nil, apperror.NewAuthError("Could not validate credentials", err)
	}

	user, err := resolver.FindByEmail(r.Context(), subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewAuthError("User not found", nil)
	}
	return user, nil
}
