package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTL constants. Both can be overridden through configuration.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	// Short-lived for security - typical range is 15m to 1h.
	DefaultAccessTokenTTL = 30 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	// Longer-lived for user convenience - typical range is 7d to 30d.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenType discriminates access tokens from refresh tokens so one can never
// be replayed as the other.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Valid reports whether t is one of the known token types.
func (t TokenType) Valid() bool {
	return t == TypeAccess || t == TypeRefresh
}

// Claims are the claims carried by every token this service mints.
type Claims struct {
	jwt.RegisteredClaims

	// Type is either "access" or "refresh".
	Type TokenType `json:"typ"`

	// Authorities granted at issuance, e.g. ["ROLE_USER"]. Only present on
	// access tokens; refresh tokens carry identity only.
	Authorities []string `json:"auth,omitempty"`
}

// NewClaims builds claims for the given subject. Authorities are dropped
// for refresh tokens.
func NewClaims(
	subject string,
	authorities []string,
	typ TokenType,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	now = now.UTC()

	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Type: typ,
	}
	if typ == TypeAccess {
		c.Authorities = slices.Clone(authorities)
	}
	return c
}

// NewJTI returns a unique token identifier. Two tokens minted for the same
// subject within the same second must still differ, otherwise rotation
// would hand back a value equal to the one it replaces.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateType checks the token type discriminator.
func (c *Claims) ValidateType(expected TokenType) error {
	if c.Type != expected {
		return ErrTokenType
	}
	return nil
}

// ValidateExpiryAt ensures now < exp and that now is not before nbf. The
// leeway only applies to nbf.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}

	// exp is exclusive: a token is valid only while now < exp
	if !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}

// ExpiresAtTime returns the expiry as a time.Time, or the zero time.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAtTime returns the issue time as a time.Time, or the zero time.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
