package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/plus1250/jobatrend/pkg/jwtx"
	"github.com/plus1250/jobatrend/pkg/slogx"
)

// AccessValidator turns a bearer token into the caller's identity.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, token string) (Identity, error)
}

// AccessValidatorFunc adapts a function to AccessValidator.
type AccessValidatorFunc func(ctx context.Context, token string) (Identity, error)

func (f AccessValidatorFunc) ValidateAccess(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return raw, raw != ""
}

func AuthnMiddleware(v AccessValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			id, err := v.ValidateAccess(ctx, raw)
			if err != nil {
				switch {
				case errors.Is(err, jwtx.ErrExpired):
					// Clients react to this one by calling reissue.
					writeBearerError(w, "token expired")
				default:
					log.Warn("access token rejected",
						"err", err,
						"failure", jwtx.Classify(err).String(),
					)
					writeBearerError(w, "token verification failed")
				}
				return
			}

			ctx = WithIdentity(ctx, id)
			ctx = slogx.WithSubject(ctx, id.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
