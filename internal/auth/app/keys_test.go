package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plus1250/jobatrend/pkg/cryptox"
	"github.com/plus1250/jobatrend/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const testSecret = "app-test-secret-0123456789abcdef"

func TestInitSigningKey_HS256(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		signer, err := InitSigningKey(Config{Algorithm: jwtx.AlgorithmHS256, SigningSecret: testSecret}, discard)
		require.NoError(t, err)
		require.Equal(t, jwtx.AlgorithmHS256, signer.Alg())
	})

	t.Run("file with trailing newline", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "secret")
		require.NoError(t, os.WriteFile(path, []byte(testSecret+"\n"), 0o600))

		fromFile, err := InitSigningKey(Config{Algorithm: jwtx.AlgorithmHS256, SigningSecretFile: path}, discard)
		require.NoError(t, err)
		inline, err := InitSigningKey(Config{Algorithm: jwtx.AlgorithmHS256, SigningSecret: testSecret}, discard)
		require.NoError(t, err)

		// Both load the same secret, so tokens cross-verify.
		codec, err := jwtx.NewCodec(fromFile, jwtx.CodecConfig{Issuer: "i", AccessTTL: time.Minute, RefreshTTL: time.Hour})
		require.NoError(t, err)
		other, err := jwtx.NewCodec(inline, jwtx.CodecConfig{Issuer: "i", AccessTTL: time.Minute, RefreshTTL: time.Hour})
		require.NoError(t, err)

		minted, err := codec.Mint("a@x.com", nil, jwtx.TypeAccess, time.Now())
		require.NoError(t, err)
		_, err = other.Verify(minted.Token, jwtx.TypeAccess, time.Now())
		require.NoError(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := InitSigningKey(Config{Algorithm: jwtx.AlgorithmHS256}, discard)
		require.ErrorIs(t, err, jwtx.ErrKeyUnavailable)
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := InitSigningKey(Config{
			Algorithm:         jwtx.AlgorithmHS256,
			SigningSecretFile: filepath.Join(t.TempDir(), "nope"),
		}, discard)
		require.ErrorIs(t, err, jwtx.ErrKeyUnavailable)
	})
}

func TestInitSigningKey_EdDSA(t *testing.T) {
	pem, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem, 0o600))

	signer, err := InitSigningKey(Config{Algorithm: jwtx.AlgorithmEdDSA, SigningKeyFile: path}, discard)
	require.NoError(t, err)
	require.Equal(t, jwtx.AlgorithmEdDSA, signer.Alg())
	require.NoError(t, signer.Validate())

	_, err = InitSigningKey(Config{Algorithm: jwtx.AlgorithmEdDSA}, discard)
	require.ErrorIs(t, err, jwtx.ErrKeyUnavailable)

	// A secret is not a PEM key.
	_, err = InitSigningKey(Config{Algorithm: jwtx.AlgorithmEdDSA, SigningKeyFile: writeTemp(t, testSecret)}, discard)
	require.Error(t, err)
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
