package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the auth service. Unauthenticated calls live here;
// authenticated ones go through a Session created by Login.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates an account.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/users", req, "")
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckNickname reports whether email is registered under nickname.
func (c *SDKClient) CheckNickname(ctx context.Context, email, nickname string) (bool, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/users/nickname-check",
		NicknameCheckRequest{Email: email, Nickname: nickname}, "")
	if err != nil {
		return false, err
	}

	var out NicknameCheckResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return false, err
	}
	return out.Match, nil
}

// NewSessionFromTokens resumes a session from a stored pair. The session
// reissues on its first call if the access token has already expired.
func (c *SDKClient) NewSessionFromTokens(tokens TokenResponse) *Session {
	return newSession(c, &tokens)
}
