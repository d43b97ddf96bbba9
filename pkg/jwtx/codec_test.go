package jwtx_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/plus1250/jobatrend/pkg/cryptox"
	"github.com/plus1250/jobatrend/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "jobatrend-test"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newHS256Codec(t *testing.T) *jwtx.Codec {
	t.Helper()

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	codec, err := jwtx.NewCodec(signer, jwtx.CodecConfig{
		Issuer:     testIssuer,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	return codec
}

func newEdDSACodec(t *testing.T) *jwtx.Codec {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA(pemKey)
	require.NoError(t, err)
	require.Equal(t, jwtx.AlgorithmEdDSA, signer.Alg())

	codec, err := jwtx.NewCodec(signer, jwtx.CodecConfig{Issuer: testIssuer})
	require.NoError(t, err)
	return codec
}

// flipChar swaps a single base64url character at idx for a different one.
func flipChar(s string, idx int) string {
	b := []byte(s)
	if b[idx] == 'A' {
		b[idx] = 'B'
	} else {
		b[idx] = 'A'
	}
	return string(b)
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	codecs := map[string]func(*testing.T) *jwtx.Codec{
		"HS256": newHS256Codec,
		"EdDSA": newEdDSACodec,
	}

	for name, mk := range codecs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			codec := mk(t)
			now := time.Now().UTC()

			access, err := codec.Mint("a@x.com", []string{"ROLE_USER", "ROLE_ADMIN"}, jwtx.TypeAccess, now)
			require.NoError(t, err)
			require.Len(t, strings.Split(access.Token, "."), 3)

			claims, err := codec.Verify(access.Token, jwtx.TypeAccess, now)
			require.NoError(t, err)
			require.Equal(t, "a@x.com", claims.Subject)
			require.Equal(t, testIssuer, claims.Issuer)
			require.Equal(t, []string{"ROLE_USER", "ROLE_ADMIN"}, claims.Authorities)
			require.Equal(t, access.Claims.ID, claims.ID)
			require.Equal(t, access.ExpiresAt().Unix(), claims.ExpiresAtTime().Unix())

			refresh, err := codec.Mint("a@x.com", []string{"ROLE_USER"}, jwtx.TypeRefresh, now)
			require.NoError(t, err)
			rc, err := codec.Verify(refresh.Token, jwtx.TypeRefresh, now)
			require.NoError(t, err)
			require.Equal(t, "a@x.com", rc.Subject)
			require.Empty(t, rc.Authorities)
		})
	}
}

func TestCodecTTLPerType(t *testing.T) {
	t.Parallel()

	codec := newHS256Codec(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	access, err := codec.Mint("a@x.com", nil, jwtx.TypeAccess, now)
	require.NoError(t, err)
	refresh, err := codec.Mint("a@x.com", nil, jwtx.TypeRefresh, now)
	require.NoError(t, err)

	require.Equal(t, now.Add(15*time.Minute), access.ExpiresAt())
	require.Equal(t, now.Add(24*time.Hour), refresh.ExpiresAt())
}

func TestCodecExpiry(t *testing.T) {
	t.Parallel()

	codec := newHS256Codec(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	access, err := codec.Mint("a@x.com", nil, jwtx.TypeAccess, now)
	require.NoError(t, err)

	_, err = codec.Verify(access.Token, jwtx.TypeAccess, now.Add(15*time.Minute-time.Second))
	require.NoError(t, err)

	_, err = codec.Verify(access.Token, jwtx.TypeAccess, now.Add(15*time.Minute))
	require.ErrorIs(t, err, jwtx.ErrExpired)
	require.Equal(t, jwtx.FailureExpired, jwtx.Classify(err))

	// Relaxed mode still recovers the subject.
	claims, err := codec.VerifyIgnoringExpiry(access.Token, jwtx.TypeAccess)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", claims.Subject)
}

func TestCodecVerifierClockBehind(t *testing.T) {
	t.Parallel()

	codec := newHS256Codec(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, typ := range []jwtx.TokenType{jwtx.TypeAccess, jwtx.TypeRefresh} {
		minted, err := codec.Mint("a@x.com", nil, typ, now)
		require.NoError(t, err)

		claims, err := codec.Verify(minted.Token, typ, now.Add(-2*time.Second))
		require.NoError(t, err)
		require.Equal(t, "a@x.com", claims.Subject)
	}

	strict, err := jwtx.NewCodec(mustHS256(t), jwtx.CodecConfig{Issuer: testIssuer, Leeway: time.Second})
	require.NoError(t, err)
	minted, err := strict.Mint("a@x.com", nil, jwtx.TypeAccess, now)
	require.NoError(t, err)
	_, err = strict.Verify(minted.Token, jwtx.TypeAccess, now.Add(-2*time.Second))
	require.ErrorIs(t, err, jwtx.ErrNotYetValid)
}

func mustHS256(t *testing.T) jwtx.Signer {
	t.Helper()
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	return signer
}

func TestCodecFlippedPayloadIsSignatureFailure(t *testing.T) {
	t.Parallel()

	codec := newHS256Codec(t)
	now := time.Now().UTC()

	access, err := codec.Mint("a@x.com", []string{"ROLE_USER"}, jwtx.TypeAccess, now)
	require.NoError(t, err)

	parts := strings.Split(access.Token, ".")
	payloadStart := len(parts[0]) + 1

	for i := 0; i < len(parts[1]); i++ {
		tampered := flipChar(access.Token, payloadStart+i)

		_, err := codec.Verify(tampered, jwtx.TypeAccess, now)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig, "payload offset %d", i)
		require.Equal(t, jwtx.FailureSignature, jwtx.Classify(err))

		_, err = codec.VerifyIgnoringExpiry(tampered, jwtx.TypeAccess)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig, "payload offset %d", i)
	}
}

func TestCodecFlippedSignature(t *testing.T) {
	t.Parallel()

	codec := newEdDSACodec(t)
	now := time.Now().UTC()

	access, err := codec.Mint("a@x.com", nil, jwtx.TypeAccess, now)
	require.NoError(t, err)

	tampered := flipChar(access.Token, len(access.Token)/2+len(access.Token)/4)
	_, err = codec.Verify(tampered, jwtx.TypeAccess, now)
	require.Error(t, err)
	require.NotEqual(t, jwtx.FailureNone, jwtx.Classify(err))
	require.NotEqual(t, jwtx.FailureExpired, jwtx.Classify(err))
}

func TestCodecForeignKey(t *testing.T) {
	t.Parallel()

	a := newEdDSACodec(t)
	b := newEdDSACodec(t)
	now := time.Now().UTC()

	tok, err := a.Mint("a@x.com", nil, jwtx.TypeAccess, now)
	require.NoError(t, err)

	_, err = b.Verify(tok.Token, jwtx.TypeAccess, now)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestCodecAlgorithmMismatch(t *testing.T) {
	t.Parallel()

	hs := newHS256Codec(t)
	ed := newEdDSACodec(t)
	now := time.Now().UTC()

	tok, err := ed.Mint("a@x.com", nil, jwtx.TypeAccess, now)
	require.NoError(t, err)

	_, err = hs.Verify(tok.Token, jwtx.TypeAccess, now)
	require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
	require.Equal(t, jwtx.FailureSignature, jwtx.Classify(err))
}

func TestCodecRejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	codec := newHS256Codec(t)
	now := time.Now().UTC()

	claims := jwtx.NewClaims("a@x.com", []string{"ROLE_ADMIN"}, jwtx.TypeAccess, time.Hour, testIssuer, now)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Verify(unsigned+"c2ln", jwtx.TypeAccess, now)
	require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
}

func TestCodecTypeConfusion(t *testing.T) {
	t.Parallel()

	codec := newHS256Codec(t)
	now := time.Now().UTC()

	refresh, err := codec.Mint("a@x.com", nil, jwtx.TypeRefresh, now)
	require.NoError(t, err)

	_, err = codec.Verify(refresh.Token, jwtx.TypeAccess, now)
	require.ErrorIs(t, err, jwtx.ErrTokenType)
	require.Equal(t, jwtx.FailureMalformed, jwtx.Classify(err))
}

func TestCodecIssuerMismatch(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	other, err := jwtx.NewCodec(signer, jwtx.CodecConfig{Issuer: "someone-else"})
	require.NoError(t, err)

	now := time.Now().UTC()
	tok, err := other.Mint("a@x.com", nil, jwtx.TypeAccess, now)
	require.NoError(t, err)

	_, err = newHS256Codec(t).Verify(tok.Token, jwtx.TypeAccess, now)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestCodecMalformed(t *testing.T) {
	t.Parallel()

	codec := newHS256Codec(t)
	now := time.Now().UTC()

	validHeader := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"one segment", "abc"},
		{"two segments", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"empty signature", validHeader + ".e30."},
		{"header not base64", "!!!.e30.c2ln"},
		{"header not json", base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".e30.c2ln"},
		{"signature not base64", validHeader + ".e30.!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.token, jwtx.TypeAccess, now)
			require.ErrorIs(t, err, jwtx.ErrMalformed)
			require.Equal(t, jwtx.FailureMalformed, jwtx.Classify(err))
		})
	}
}

func TestCodecDistinctTokensSameSecond(t *testing.T) {
	t.Parallel()

	codec := newHS256Codec(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a, err := codec.Mint("a@x.com", nil, jwtx.TypeRefresh, now)
	require.NoError(t, err)
	b, err := codec.Mint("a@x.com", nil, jwtx.TypeRefresh, now)
	require.NoError(t, err)

	require.NotEqual(t, a.Token, b.Token)
}

func TestSignerKeyUnavailable(t *testing.T) {
	t.Parallel()

	_, err := jwtx.NewSignerHS256(nil)
	require.ErrorIs(t, err, jwtx.ErrKeyUnavailable)

	_, err = jwtx.NewSignerHS256([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrKeyUnavailable)

	_, err = jwtx.NewSignerEdDSA([]byte("not-a-pem-key"))
	require.ErrorIs(t, err, jwtx.ErrKeyUnavailable)

	_, err = jwtx.NewSigner("RS256", testSecret)
	require.ErrorIs(t, err, jwtx.ErrUnsupportedAlg)

	_, err = jwtx.NewSigner(jwtx.AlgorithmEdDSA, nil)
	require.ErrorIs(t, err, jwtx.ErrKeyUnavailable)

	_, err = jwtx.NewCodec(nil, jwtx.CodecConfig{})
	require.ErrorIs(t, err, jwtx.ErrKeyUnavailable)
}
