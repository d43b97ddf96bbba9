package httpx_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/plus1250/jobatrend/pkg/httpx"
	"github.com/plus1250/jobatrend/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func fakeValidator(tokens map[string]httpx.Identity) httpx.AccessValidator {
	return httpx.AccessValidatorFunc(func(_ context.Context, token string) (httpx.Identity, error) {
		switch token {
		case "expired":
			return httpx.Identity{}, jwtx.ErrExpired
		case "tampered":
			return httpx.Identity{}, fmt.Errorf("verify: %w", jwtx.ErrInvalidSig)
		}
		id, ok := tokens[token]
		if !ok {
			return httpx.Identity{}, jwtx.ErrMalformed
		}
		return id, nil
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), mw("a"), mw("b"), mw("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestAuthnMiddleware(t *testing.T) {
	v := fakeValidator(map[string]httpx.Identity{
		"good": {Subject: "a@x.com", Authorities: []string{"ROLE_USER"}},
	})

	var seen string
	h := httpx.AuthnMiddleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httpx.SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
		desc   string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing bearer token"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "missing bearer token"},
		{"expired", "Bearer expired", http.StatusUnauthorized, "token expired"},
		{"tampered", "Bearer tampered", http.StatusUnauthorized, "token verification failed"},
		{"garbage", "Bearer junk", http.StatusUnauthorized, "token verification failed"},
		{"valid", "Bearer good", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.desc != "" {
				require.Contains(t, rec.Header().Get("WWW-Authenticate"), tt.desc)
				require.Empty(t, seen)
			} else {
				require.Equal(t, "a@x.com", seen)
			}
		})
	}
}

func TestRequireAnyAuthority(t *testing.T) {
	v := fakeValidator(map[string]httpx.Identity{
		"user":  {Subject: "a@x.com", Authorities: []string{"ROLE_USER"}},
		"bare":  {Subject: "b@x.com"},
		"admin": {Subject: "c@x.com", Authorities: []string{"ROLE_ADMIN"}},
	})

	h := httpx.Chain(okHandler(),
		httpx.AuthnMiddleware(v),
		httpx.RequireAnyAuthority("ROLE_USER", "ROLE_ADMIN"),
	)

	for token, want := range map[string]int{
		"user":  http.StatusOK,
		"admin": http.StatusOK,
		"bare":  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, want, rec.Code, token)
	}
}
