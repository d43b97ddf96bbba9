package app

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/plus1250/jobatrend/pkg/jwtx"
)

// InitSigningKey loads the key material for the configured algorithm and
// returns a ready signer. The key is read once at startup; there is no
// rotation.
//
// Sources, in order:
//   - HS256: AUTH_SIGNING_SECRET, then AUTH_SIGNING_SECRET_FILE.
//   - EdDSA: AUTH_SIGNING_KEY_FILE (PKCS8 PEM, see `auth keygen`).
//
// Missing material is fatal and reported as jwtx.ErrKeyUnavailable.
func InitSigningKey(cfg Config, logger *slog.Logger) (jwtx.Signer, error) {
	key, source, err := loadKeyMaterial(cfg)
	if err != nil {
		return nil, err
	}

	signer, err := jwtx.NewSigner(cfg.Algorithm, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s signing key from %s: %w", cfg.Algorithm, source, err)
	}

	logger.Info("signing key loaded", "algorithm", signer.Alg(), "source", source)
	return signer, nil
}

func loadKeyMaterial(cfg Config) ([]byte, string, error) {
	switch cfg.Algorithm {
	case jwtx.AlgorithmHS256:
		if cfg.SigningSecret != "" {
			return []byte(cfg.SigningSecret), "AUTH_SIGNING_SECRET", nil
		}
		if cfg.SigningSecretFile != "" {
			raw, err := os.ReadFile(cfg.SigningSecretFile)
			if err != nil {
				return nil, "", fmt.Errorf("%w: %v", jwtx.ErrKeyUnavailable, err)
			}
			return bytes.TrimSpace(raw), cfg.SigningSecretFile, nil
		}
		return nil, "", fmt.Errorf("%w: set AUTH_SIGNING_SECRET or AUTH_SIGNING_SECRET_FILE", jwtx.ErrKeyUnavailable)

	case jwtx.AlgorithmEdDSA:
		if cfg.SigningKeyFile == "" {
			return nil, "", fmt.Errorf("%w: set AUTH_SIGNING_KEY_FILE", jwtx.ErrKeyUnavailable)
		}
		raw, err := os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", jwtx.ErrKeyUnavailable, err)
		}
		return raw, cfg.SigningKeyFile, nil

	default:
		return nil, "", fmt.Errorf("%w: %q", jwtx.ErrUnsupportedAlg, cfg.Algorithm)
	}
}
