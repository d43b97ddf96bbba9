package authsdk

import (
	"context"
	"net/http"
)

// Login authenticates with email and password and returns a Session that
// reissues its tokens as they expire.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login",
		LoginRequest{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &tokens), nil
}

// Reissue exchanges a pair for a new one. The old refresh token is dead
// once this returns successfully; presenting it again yields
// ErrRefreshMismatch.
func (c *SDKClient) Reissue(ctx context.Context, accessToken, refreshToken string) (*TokenResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/reissue",
		ReissueRequest{AccessToken: accessToken, RefreshToken: refreshToken}, "")
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokens, nil
}
