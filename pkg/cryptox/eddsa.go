package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// pemTypePrivateKey is the block type for PKCS8 keys, the only form the
// EdDSA token signer accepts.
const pemTypePrivateKey = "PRIVATE KEY"

// GenerateEd25519Key returns a fresh signing key for AUTH_SIGNING_KEY_FILE,
// PKCS8 encoded in PEM.
func GenerateEd25519Key() ([]byte, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate ed25519 key: %w", err)
	}
	return EncodeEd25519Key(key)
}

// EncodeEd25519Key wraps key as a PKCS8 PEM block.
func EncodeEd25519Key(key ed25519.PrivateKey) ([]byte, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("cryptox: ed25519 key is %d bytes, want %d", len(key), ed25519.PrivateKeySize)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal pkcs8: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: der}), nil
}
