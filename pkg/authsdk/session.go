package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// maxRefreshSkew is how long before expiry a session reissues.
const maxRefreshSkew = 30 * time.Second

// ErrSessionClosed is returned by a Session after logout or a password
// change.
var ErrSessionClosed = errors.New("authsdk: session closed")

// Session holds a token pair and reissues it when the access token is about
// to expire. It is safe for concurrent use; concurrent callers share one
// reissue.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(client *SDKClient, tokens *TokenResponse) *Session {
	s := &Session{client: client}
	s.store(tokens)
	return s
}

// store must be called with mu held for writing, or before s is shared.
func (s *Session) store(tokens *TokenResponse) {
	ttl := time.Duration(tokens.ExpiresIn) * time.Second
	skew := min(maxRefreshSkew, ttl/2)

	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
	s.expiresAt = time.Now().Add(ttl - skew)
	if !tokens.AccessTokenExpiresAt.IsZero() {
		s.expiresAt = tokens.AccessTokenExpiresAt.Add(-skew)
	}
}

// getValidToken returns a usable access token, reissuing first if needed.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.accessToken != "" && time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have reissued while we waited.
	if s.accessToken != "" && time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", ErrSessionClosed
	}

	tokens, err := s.client.Reissue(ctx, s.accessToken, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to reissue tokens: %w", err)
	}
	s.store(tokens)
	return s.accessToken, nil
}

// Reissue forces a token rotation regardless of expiry.
func (s *Session) Reissue(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshToken == "" {
		return ErrSessionClosed
	}
	tokens, err := s.client.Reissue(ctx, s.accessToken, s.refreshToken)
	if err != nil {
		return err
	}
	s.store(tokens)
	return nil
}

// Tokens returns the current pair without checking expiry, e.g. to persist
// it for NewSessionFromTokens.
func (s *Session) Tokens() (accessToken, refreshToken string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = time.Time{}
}

// doAuthRequest sends an authenticated JSON request.
func (s *Session) doAuthRequest(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.doJSON(ctx, method, path, payload, token)
}
