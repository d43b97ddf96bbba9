package jwtx

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CodecConfig holds the per-process settings for minting and verifying.
type CodecConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Leeway tolerates a verifier clock running behind the minter's when
	// checking nbf. exp is never stretched. Zero means DefaultClockSkew.
	Leeway time.Duration
}

// DefaultClockSkew is the nbf tolerance between processes.
const DefaultClockSkew = 30 * time.Second

// Minted is a freshly signed token together with the claims inside it.
type Minted struct {
	Token  string
	Claims Claims
}

// ExpiresAt is a shortcut for the exp claim.
func (m Minted) ExpiresAt() time.Time { return m.Claims.ExpiresAtTime() }

// Codec mints and verifies the signed tokens handed to clients. It holds no
// state beyond the signing key and is safe for concurrent use.
type Codec struct {
	signer Signer
	cfg    CodecConfig
	parser *jwt.Parser
}

// NewCodec wires a signer into a codec. TTLs fall back to the defaults.
func NewCodec(signer Signer, cfg CodecConfig) (*Codec, error) {
	if signer == nil {
		return nil, ErrKeyUnavailable
	}
	if err := signer.Validate(); err != nil {
		return nil, err
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	if cfg.Leeway <= 0 {
		cfg.Leeway = DefaultClockSkew
	}

	return &Codec{
		signer: signer,
		cfg:    cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signer.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// TTL returns the configured lifetime for the given token type.
func (c *Codec) TTL(typ TokenType) time.Duration {
	if typ == TypeRefresh {
		return c.cfg.RefreshTTL
	}
	return c.cfg.AccessTTL
}

// Issuer returns the configured iss claim.
func (c *Codec) Issuer() string { return c.cfg.Issuer }

// Mint signs a new token of the given type for subject. The only failure is
// an unusable signing key.
func (c *Codec) Mint(subject string, authorities []string, typ TokenType, now time.Time) (Minted, error) {
	if !typ.Valid() {
		return Minted{}, fmt.Errorf("%w: unknown token type %q", ErrInvalidClaim, typ)
	}

	claims := NewClaims(subject, authorities, typ, c.TTL(typ), c.cfg.Issuer, now)
	signed, err := c.signer.Sign(claims)
	if err != nil {
		return Minted{}, err
	}

	return Minted{Token: signed, Claims: claims}, nil
}

// Verify checks structure, signature, type and expiry, in that order.
func (c *Codec) Verify(token string, typ TokenType, now time.Time) (*Claims, error) {
	claims, err := c.verify(token, typ)
	if err != nil {
		return nil, err
	}
	if err := claims.ValidateExpiryAt(now, c.cfg.Leeway); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyIgnoringExpiry is Verify without the exp and nbf checks. It is only
// suitable for recovering identity from a token, never for authorising.
func (c *Codec) VerifyIgnoringExpiry(token string, typ TokenType) (*Claims, error) {
	return c.verify(token, typ)
}

func (c *Codec) verify(token string, typ TokenType) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, ErrMalformed
	}

	if err := c.checkHeader(parts[0]); err != nil {
		return nil, err
	}

	// The signature covers the raw header and payload segments, so it is
	// checked before anything inside the payload is trusted or decoded.
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature encoding", ErrMalformed)
	}
	signingString := parts[0] + "." + parts[1]
	if err := c.signer.Method().Verify(signingString, sig, c.signer.VerifyKey()); err != nil {
		return nil, ErrInvalidSig
	}

	claims := &Claims{}
	if _, err := c.parser.ParseWithClaims(token, claims, c.keyFunc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidClaim
	}
	if err := claims.ValidateIssuer(c.cfg.Issuer); err != nil {
		return nil, err
	}
	if err := claims.ValidateType(typ); err != nil {
		return nil, err
	}

	return claims, nil
}

func (c *Codec) checkHeader(seg string) error {
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return fmt.Errorf("%w: header encoding", ErrMalformed)
	}

	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return fmt.Errorf("%w: header json", ErrMalformed)
	}
	if header.Alg != c.signer.Alg() {
		return ErrAlgMismatch
	}
	return nil
}

func (c *Codec) keyFunc(*jwt.Token) (any, error) {
	return c.signer.VerifyKey(), nil
}
