package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeAuth is a tiny in-memory server speaking the wire protocol: one live
// refresh token, rotated on every reissue.
type fakeAuth struct {
	mu       sync.Mutex
	seq      int
	access   string
	refresh  string
	ttl      time.Duration
	reissues atomic.Int32
}

func (f *fakeAuth) mint() TokenResponse {
	f.seq++
	f.access = "access-" + strconv.Itoa(f.seq)
	f.refresh = "refresh-" + strconv.Itoa(f.seq)
	return TokenResponse{
		AccessToken:          f.access,
		RefreshToken:         f.refresh,
		TokenType:            "Bearer",
		ExpiresIn:            int64(f.ttl / time.Second),
		AccessTokenExpiresAt: time.Now().Add(f.ttl),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAuth) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "pw" {
			ErrBadCredential.WriteError(w)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.mint())
	})
	mux.HandleFunc("POST /v1/auth/reissue", func(w http.ResponseWriter, r *http.Request) {
		var req ReissueRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		if req.RefreshToken != f.refresh {
			ErrRefreshMismatch.WriteError(w)
			return
		}
		f.reissues.Add(1)
		writeJSON(w, http.StatusOK, f.mint())
	})
	mux.HandleFunc("GET /v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+f.access {
			ErrInvalidToken.WriteError(w)
			return
		}
		writeJSON(w, http.StatusOK, UserResponse{Email: "a@x.com", Nickname: "alice"})
	})
	mux.HandleFunc("POST /v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.refresh = ""
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ErrTemporarilyUnavailable.WriteError(w)
	})
	return mux
}

func newFake(t *testing.T, ttl time.Duration) (*fakeAuth, *SDKClient) {
	t.Helper()
	f := &fakeAuth{ttl: ttl}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return f, NewSDKClient(srv.URL + "/")
}

func TestLoginAndMe(t *testing.T) {
	_, client := newFake(t, time.Hour)
	ctx := context.Background()

	session, err := client.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", me.Nickname)
}

func TestLogin_BadCredential(t *testing.T) {
	_, client := newFake(t, time.Hour)

	_, err := client.Login(context.Background(), "a@x.com", "nope")
	require.ErrorIs(t, err, ErrBadCredential)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.False(t, apiErr.Retriable())
}

func TestSession_ReissuesExpiredAccessToken(t *testing.T) {
	f, client := newFake(t, time.Hour)
	ctx := context.Background()

	session, err := client.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	// Pretend the access token has run out.
	session.mu.Lock()
	session.expiresAt = time.Now().Add(-time.Second)
	session.mu.Unlock()

	_, err = session.Me(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, f.reissues.Load())

	access, refresh := session.Tokens()
	require.Equal(t, "access-2", access)
	require.Equal(t, "refresh-2", refresh)
}

func TestSession_ConcurrentCallersShareOneReissue(t *testing.T) {
	f, client := newFake(t, time.Hour)
	ctx := context.Background()

	session, err := client.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	session.mu.Lock()
	session.expiresAt = time.Now().Add(-time.Second)
	session.mu.Unlock()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := session.Me(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.EqualValues(t, 1, f.reissues.Load())
}

func TestReissue_ReplayedRefreshToken(t *testing.T) {
	_, client := newFake(t, time.Hour)
	ctx := context.Background()

	session, err := client.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	oldAccess, oldRefresh := session.Tokens()

	require.NoError(t, session.Reissue(ctx))

	_, err = client.Reissue(ctx, oldAccess, oldRefresh)
	require.ErrorIs(t, err, ErrRefreshMismatch)
}

func TestSession_LogoutCloses(t *testing.T) {
	_, client := newFake(t, time.Hour)
	ctx := context.Background()

	session, err := client.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	require.NoError(t, session.Logout(ctx))

	_, err = session.Me(ctx)
	require.ErrorIs(t, err, ErrSessionClosed)
	require.ErrorIs(t, session.Reissue(ctx), ErrSessionClosed)
}

func TestNewSessionFromTokens(t *testing.T) {
	f, client := newFake(t, time.Hour)
	ctx := context.Background()

	first, err := client.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	access, refresh := first.Tokens()

	resumed := client.NewSessionFromTokens(TokenResponse{AccessToken: access, RefreshToken: refresh})
	_, err = resumed.Me(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, f.reissues.Load(), "a pair without expiry info is reissued on first use")
}

func TestHealth(t *testing.T) {
	_, client := newFake(t, time.Hour)
	ctx := context.Background()

	live, err := client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	_, err = client.GetReadiness(ctx)
	require.ErrorIs(t, err, ErrTemporarilyUnavailable)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.True(t, apiErr.Retriable())
}

func TestParseErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{"typed body", http.StatusConflict, `{"error":"email_taken","error_description":"x"}`, ErrorCodeEmailTaken},
		{"bare 429", http.StatusTooManyRequests, ``, ErrorCodeRateLimited},
		{"html 502", http.StatusBadGateway, `<html>`, ErrorCodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseErrorResponse(&http.Response{StatusCode: tt.status}, []byte(tt.body))
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tt.code, apiErr.Code)
			require.Equal(t, tt.status, apiErr.StatusCode)
		})
	}

	require.NoError(t, parseErrorResponse(&http.Response{StatusCode: http.StatusOK}, nil))
}
