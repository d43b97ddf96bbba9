package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(SecretSize)
	require.NoError(t, err)
	b, err := GenerateSecret(SecretSize)
	require.NoError(t, err)

	require.NotEqual(t, a, b, "secrets should be unique")

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	require.Len(t, raw, SecretSize)
}

func TestGenerateSecret_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		s, err := GenerateSecret(size)
		require.Error(t, err)
		require.Empty(t, s)
	}
}

func TestFingerprintToken(t *testing.T) {
	fp1a := FingerprintToken("test-token-1")
	fp1b := FingerprintToken("test-token-1")
	fp2 := FingerprintToken("test-token-2")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2, "different tokens should have different fingerprints")
	require.Len(t, fp1a, 43, "SHA-256 base64url should be 43 chars")
}

func TestTokenMatches(t *testing.T) {
	fp := FingerprintToken("header.payload.sig")

	require.True(t, TokenMatches("header.payload.sig", fp))
	require.False(t, TokenMatches("header.payload.sih", fp))
	require.False(t, TokenMatches("", fp))
	require.False(t, FingerprintsEqual(fp, fp[:42]))
}
