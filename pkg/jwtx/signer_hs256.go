package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinHS256SecretSize is the shortest shared secret we accept. RFC 7518
// requires the key to be at least as long as the hash output.
const MinHS256SecretSize = 32

// HS256Signer implements the Signer interface using HMAC-SHA256.
type HS256Signer struct {
	secret []byte
}

func newHS256Signer(secret []byte) (*HS256Signer, error) {
	if len(secret) == 0 {
		return nil, ErrKeyUnavailable
	}
	if len(secret) < MinHS256SecretSize {
		return nil, fmt.Errorf("%w: HS256 secret must be at least %d bytes", ErrKeyUnavailable, MinHS256SecretSize)
	}

	// Keep our own copy so the caller can wipe theirs
	s := make([]byte, len(secret))
	copy(s, secret)

	return &HS256Signer{secret: s}, nil
}

func (s *HS256Signer) Alg() string               { return AlgorithmHS256 }
func (s *HS256Signer) Method() jwt.SigningMethod { return jwt.SigningMethodHS256 }
func (s *HS256Signer) VerifyKey() any            { return s.secret }

// Sign turns the claims into a signed compact JWT.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	return signed, nil
}

// Validate makes sure the secret is still usable.
func (s *HS256Signer) Validate() error {
	if len(s.secret) < MinHS256SecretSize {
		return ErrKeyUnavailable
	}
	return nil
}
