package jwtx

import "github.com/golang-jwt/jwt/v5"

// Supported JWT signing algorithms
const (
	AlgorithmHS256 = "HS256"
	AlgorithmEdDSA = "EdDSA"
)

// Signer is our interface for anything that can sign JWTs and hand out the
// matching verification key.
type Signer interface {
	Alg() string
	Method() jwt.SigningMethod
	Sign(Claims) (string, error)
	VerifyKey() any
	Validate() error
}

// NewSignerHS256 creates an HMAC-SHA256 signer from a shared secret.
func NewSignerHS256(secret []byte) (Signer, error) {
	return newHS256Signer(secret)
}

// NewSignerEdDSA creates an EdDSA signer from PEM bytes.
// Ed25519 keys must be in PKCS8 format.
func NewSignerEdDSA(pemKey []byte) (Signer, error) {
	return newEdDSASigner(pemKey)
}

// NewSigner picks a signer implementation by algorithm name. For HS256 the
// key material is the raw secret, for EdDSA it is a PKCS8 PEM private key.
func NewSigner(algorithm string, key []byte) (Signer, error) {
	if len(key) == 0 {
		return nil, ErrKeyUnavailable
	}

	switch algorithm {
	case AlgorithmHS256:
		return newHS256Signer(key)
	case AlgorithmEdDSA:
		return newEdDSASigner(key)
	default:
		return nil, ErrUnsupportedAlg
	}
}
