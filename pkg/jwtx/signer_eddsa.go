package jwtx

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// EdDSASigner implements the Signer interface using Ed25519.
type EdDSASigner struct {
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// newEdDSASigner loads an Ed25519 private key from PEM bytes.
// Ed25519 keys must be in PKCS8 format.
func newEdDSASigner(pemKey []byte) (*EdDSASigner, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid PEM for Ed25519 key", ErrKeyUnavailable)
	}

	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("%w: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", ErrKeyUnavailable, block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse PKCS8: %v", ErrKeyUnavailable, err)
	}

	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an Ed25519 private key", ErrKeyUnavailable)
	}

	return &EdDSASigner{
		key: key,
		pub: key.Public().(ed25519.PublicKey),
	}, nil
}

func (s *EdDSASigner) Alg() string               { return AlgorithmEdDSA }
func (s *EdDSASigner) Method() jwt.SigningMethod { return jwt.SigningMethodEdDSA }
func (s *EdDSASigner) VerifyKey() any            { return s.pub }

// Sign takes your claims and turns them into a signed JWT string.
func (s *EdDSASigner) Sign(claims Claims) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	return signed, nil
}

// Validate does a quick sanity check to make sure we actually have keys.
func (s *EdDSASigner) Validate() error {
	if s.key == nil || s.pub == nil {
		return fmt.Errorf("%w: nil Ed25519 key", ErrKeyUnavailable)
	}
	if len(s.key) != ed25519.PrivateKeySize {
		return errors.Join(ErrKeyUnavailable, errors.New("jwtx: invalid Ed25519 private key size"))
	}
	if len(s.pub) != ed25519.PublicKeySize {
		return errors.Join(ErrKeyUnavailable, errors.New("jwtx: invalid Ed25519 public key size"))
	}
	return nil
}
