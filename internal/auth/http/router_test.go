package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/obs"
	"github.com/plus1250/jobatrend/internal/auth/service"
	"github.com/plus1250/jobatrend/internal/auth/store"
	"github.com/plus1250/jobatrend/internal/auth/store/drivers/sqlite"
	"github.com/plus1250/jobatrend/pkg/authsdk"
	"github.com/plus1250/jobatrend/pkg/cryptox"
	"github.com/plus1250/jobatrend/pkg/httpx"
	"github.com/plus1250/jobatrend/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	// Flows below log in and reissue many times from one address.
	httpx.StrictLimit = httpx.PublicLimit
	httpx.ModerateLimit = httpx.PublicLimit

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

type testServer struct {
	url    string
	client *authsdk.SDKClient
	codec  *jwtx.Codec
	tokens *service.TokenService
	st     store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	signer, err := jwtx.NewSignerHS256([]byte("http-test-secret-0123456789abcdef"))
	require.NoError(t, err)
	codec, err := jwtx.NewCodec(signer, jwtx.CodecConfig{
		Issuer:     "jobatrend-test",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: time.Hour,
	})
	require.NoError(t, err)

	metrics := obs.NewMetrics()
	tokens := &service.TokenService{
		Codec:       codec,
		Credentials: store.NewCredentialAdapter(st.Users()),
		Refresh:     st.RefreshTokens(),
		Metrics:     metrics,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(signer, "test", st, logger, metrics)
	router.TokenService = tokens
	router.UserService = &service.UserService{Store: st, Tokens: tokens}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{
		url:    srv.URL,
		client: authsdk.NewSDKClient(srv.URL),
		codec:  codec,
		tokens: tokens,
		st:     st,
	}
}

func (s *testServer) register(t *testing.T, email, password string) {
	t.Helper()
	_, err := s.client.Register(context.Background(), authsdk.RegisterRequest{
		Email:    email,
		Password: password,
		Nickname: "nick",
	})
	require.NoError(t, err)
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, s.url+path, rd)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) authsdk.ErrorResponse {
	t.Helper()
	var out authsdk.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// tamper changes the first payload character.
func tamper(token string) string {
	i := strings.IndexByte(token, '.') + 1
	c := byte('A')
	if token[i] == 'A' {
		c = 'B'
	}
	return token[:i] + string(c) + token[i+1:]
}

func TestLoginReissueFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	s.register(t, "a@x.com", "pw")

	session, err := s.client.Login(ctx, "A@X.com ", "pw")
	require.NoError(t, err)
	access1, refresh1 := session.Tokens()

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", me.Email)
	require.Equal(t, []string{"ROLE_USER"}, me.Authorities)

	pair, err := s.client.Reissue(ctx, access1, refresh1)
	require.NoError(t, err)
	require.NotEqual(t, refresh1, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)
	require.EqualValues(t, 300, pair.ExpiresIn)

	// The rotated-out token is a replay.
	_, err = s.client.Reissue(ctx, access1, refresh1)
	require.ErrorIs(t, err, authsdk.ErrRefreshMismatch)

	// The current pair still works.
	_, err = s.client.Reissue(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	s.register(t, "a@x.com", "pw")

	_, err := s.client.Login(ctx, "b@x.com", "pw")
	require.ErrorIs(t, err, authsdk.ErrUnknownSubject)

	_, err = s.client.Login(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, authsdk.ErrBadCredential)

	resp := s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, authsdk.ErrorCodeInvalidRequest, decodeError(t, resp).Error)

	resp = s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "a@x.com", "password": "pw", "extra": "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown fields are rejected")
}

func TestLogin_ResponseIsNotCached(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "a@x.com", "pw")

	resp := s.do(t, http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "a@x.com", Password: "pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestReissue_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	s.register(t, "a@x.com", "pw")
	s.register(t, "b@x.com", "pw")

	a, err := s.client.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	b, err := s.client.Login(ctx, "b@x.com", "pw")
	require.NoError(t, err)
	aAccess, aRefresh := a.Tokens()
	bAccess, _ := b.Tokens()

	tests := []struct {
		name    string
		access  string
		refresh string
		want    error
	}{
		{"garbage refresh", aAccess, "not.a.jwt", authsdk.ErrRefreshInvalid},
		{"access in refresh slot", aAccess, aAccess, authsdk.ErrRefreshInvalid},
		{"tampered access", tamper(aAccess), aRefresh, authsdk.ErrAccessTokenCorrupt},
		{"other subject's access", bAccess, aRefresh, authsdk.ErrRefreshMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.client.Reissue(ctx, tt.access, tt.refresh)
			require.ErrorIs(t, err, tt.want)
		})
	}

	require.NoError(t, a.Logout(ctx))
	_, err = s.client.Reissue(ctx, aAccess, aRefresh)
	require.ErrorIs(t, err, authsdk.ErrSessionNotFound)
}

func TestAuthn(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "a@x.com", "pw")

	t.Run("missing bearer", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/v1/users/me", "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), `error="invalid_token"`)
	})

	t.Run("expired token", func(t *testing.T) {
		minted, err := s.codec.Mint("a@x.com", []string{"ROLE_USER"}, jwtx.TypeAccess, time.Now().Add(-time.Hour))
		require.NoError(t, err)

		resp := s.do(t, http.MethodGet, "/v1/users/me", minted.Token, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "token expired", decodeError(t, resp).ErrorDescription)
	})

	t.Run("refresh token as bearer", func(t *testing.T) {
		minted, err := s.codec.Mint("a@x.com", []string{"ROLE_USER"}, jwtx.TypeRefresh, time.Now())
		require.NoError(t, err)

		resp := s.do(t, http.MethodGet, "/v1/users/me", minted.Token, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "token verification failed", decodeError(t, resp).ErrorDescription)
	})

	t.Run("missing authority", func(t *testing.T) {
		minted, err := s.codec.Mint("a@x.com", nil, jwtx.TypeAccess, time.Now())
		require.NoError(t, err)

		resp := s.do(t, http.MethodGet, "/v1/users/me", minted.Token, nil)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeInsufficientScope, decodeError(t, resp).Error)
	})
}

func TestUsers(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	s.register(t, "a@x.com", "pw")

	_, err := s.client.Register(ctx, authsdk.RegisterRequest{Email: " A@x.com", Password: "pw", Nickname: "n"})
	require.ErrorIs(t, err, authsdk.ErrEmailTaken)

	match, err := s.client.CheckNickname(ctx, "a@x.com", "nick")
	require.NoError(t, err)
	require.True(t, match)
	match, err = s.client.CheckNickname(ctx, "nobody@x.com", "nick")
	require.NoError(t, err)
	require.False(t, match)

	session, err := s.client.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	require.NoError(t, session.UpdateNickname(ctx, "alice"))
	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", me.Nickname)

	require.ErrorIs(t, session.DeleteAccount(ctx, "wrong"), authsdk.ErrBadCredential)

	// Changing the password ends the session server-side.
	access, refresh := session.Tokens()
	require.NoError(t, session.UpdatePassword(ctx, "pw2"))
	_, err = s.client.Reissue(ctx, access, refresh)
	require.ErrorIs(t, err, authsdk.ErrSessionNotFound)

	_, err = s.client.Login(ctx, "a@x.com", "pw")
	require.ErrorIs(t, err, authsdk.ErrBadCredential)

	session, err = s.client.Login(ctx, "a@x.com", "pw2")
	require.NoError(t, err)
	require.NoError(t, session.DeleteAccount(ctx, "pw2"))

	_, err = s.client.Login(ctx, "a@x.com", "pw2")
	require.ErrorIs(t, err, authsdk.ErrUnknownSubject)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	live, err := s.client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := s.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.RefreshStore)
	require.Equal(t, "ok", ready.Checks.Signer)

	_, err = s.client.Login(ctx, "nobody@x.com", "pw")
	require.Error(t, err)

	resp := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `auth_operations_total{op="login",outcome="unknown_subject"} 1`)
	require.Contains(t, string(body), `route="GET /readyz"`)
}

func TestReadyz_Degraded(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.st.Close())

	resp := s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var health authsdk.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "degraded", health.Status)
	require.True(t, strings.HasPrefix(health.Checks.Database, "error:"))
}

func TestLogin_RateLimited(t *testing.T) {
	saved := httpx.StrictLimit
	httpx.StrictLimit = httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	t.Cleanup(func() { httpx.StrictLimit = saved })

	s := newTestServer(t)
	login := authsdk.LoginRequest{Email: "a@x.com", Password: "pw"}

	for range 2 {
		resp := s.do(t, http.MethodPost, "/v1/auth/login", "", login)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := s.do(t, http.MethodPost, "/v1/auth/login", "", login)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))

	// A different email has its own bucket.
	resp = s.do(t, http.MethodPost, "/v1/auth/login", "", authsdk.LoginRequest{Email: "b@x.com", Password: "pw"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want *authsdk.APIError
	}{
		{service.ErrUnknownSubject, authsdk.ErrUnknownSubject},
		{service.ErrBadCredential, authsdk.ErrBadCredential},
		{service.ErrRefreshInvalid, authsdk.ErrRefreshInvalid},
		{service.ErrAccessTokenCorrupt, authsdk.ErrAccessTokenCorrupt},
		{service.ErrSessionNotFound, authsdk.ErrSessionNotFound},
		{service.ErrRefreshMismatch, authsdk.ErrRefreshMismatch},
		{service.ErrEmailTaken, authsdk.ErrEmailTaken},
		{service.ErrStoreTimeout, authsdk.ErrTemporarilyUnavailable},
		{io.ErrUnexpectedEOF, authsdk.ErrServerError},
	}

	for _, tt := range tests {
		require.Same(t, tt.want, apiError(tt.err), tt.err.Error())
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	writeServiceError(rec, req, "boom", service.ErrStoreTimeout)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
}
