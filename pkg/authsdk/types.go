package authsdk

import "time"

// ErrorResponse is the wire form of an APIError.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ReissueRequest carries the pair issued together at login or the last
// reissue. The access token may already be expired.
type ReissueRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login and reissue.
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	TokenType             string    `json:"token_type"`
	ExpiresIn             int64     `json:"expires_in"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// UserResponse is the public view of an account. The password hash never
// leaves the server.
type UserResponse struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Nickname    string    `json:"nickname"`
	Authorities []string  `json:"authorities"`
	CreatedAt   time.Time `json:"created_at"`
}

type NicknameRequest struct {
	Nickname string `json:"nickname"`
}

type PasswordRequest struct {
	Password string `json:"password"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

type NicknameCheckRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

type NicknameCheckResponse struct {
	Match bool `json:"match"`
}

// HealthResponse is served by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database     string `json:"database"`
	RefreshStore string `json:"refresh_store"`
	Signer       string `json:"signer"`
}
