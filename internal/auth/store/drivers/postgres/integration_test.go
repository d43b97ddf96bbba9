package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/store"
	"github.com/plus1250/jobatrend/internal/auth/store/drivers/postgres"
	"github.com/plus1250/jobatrend/internal/auth/store/storetest"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a throwaway postgres and returns a migrated store.
// Each call to the returned func truncates the tables first.
func startPostgres(t *testing.T) func(t *testing.T) store.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "auth",
			"POSTGRES_PASSWORD": "auth",
			"POSTGRES_DB":       "auth",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://auth:auth@%s:%s/auth?sslmode=disable", host, port.Port())
	st, err := postgres.NewStore(ctx, dsn, postgres.Options{})
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.ApplyMigrations(), "migrations must be idempotent")
	t.Cleanup(func() { _ = st.Close() })

	raw, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	return func(t *testing.T) store.Store {
		_, err := raw.ExecContext(ctx, `TRUNCATE users, refresh_tokens`)
		require.NoError(t, err)
		return st
	}
}

func TestPostgresStore(t *testing.T) {
	newStore := startPostgres(t)

	t.Run("refresh tokens", func(t *testing.T) {
		storetest.RefreshTokens(t, func(t *testing.T) store.RefreshTokens {
			return newStore(t).RefreshTokens()
		})
	})
	t.Run("users", func(t *testing.T) {
		storetest.Users(t, newStore)
	})
}
