package domain

import "time"

// TokenPair is what login and reissue hand back to the client.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	TokenType             string    `json:"token_type"` // always "Bearer"
	ExpiresIn             int64     `json:"expires_in"` // seconds until the access token expires
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// RefreshRecord is the single live refresh token for a subject. Only the
// SHA-256 fingerprint of the token is kept.
type RefreshRecord struct {
	Subject   string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r RefreshRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
