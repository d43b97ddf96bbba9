// Package storetest holds behaviour tests shared by every store driver.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/domain"
	"github.com/plus1250/jobatrend/internal/auth/store"
	"github.com/stretchr/testify/require"
)

func record(subject, hash string, expires time.Time) domain.RefreshRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.RefreshRecord{
		Subject:   subject,
		TokenHash: hash,
		ExpiresAt: expires.UTC().Truncate(time.Second),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RefreshTokens exercises a RefreshTokens implementation. newRepo must
// return an empty repository each call.
func RefreshTokens(t *testing.T, newRepo func(t *testing.T) store.RefreshTokens) {
	t.Helper()
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetRefreshToken(ctx, "nobody@x.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		repo := newRepo(t)
		rec := record("a@x.com", "hash-1", future)
		require.NoError(t, repo.PutRefreshToken(ctx, rec))

		got, err := repo.GetRefreshToken(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, "a@x.com", got.Subject)
		require.Equal(t, "hash-1", got.TokenHash)
		require.WithinDuration(t, rec.ExpiresAt, got.ExpiresAt, time.Second)
	})

	t.Run("put overwrites", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.PutRefreshToken(ctx, record("a@x.com", "hash-1", future)))
		require.NoError(t, repo.PutRefreshToken(ctx, record("a@x.com", "hash-2", future)))

		got, err := repo.GetRefreshToken(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, "hash-2", got.TokenHash)
	})

	t.Run("subjects are independent", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.PutRefreshToken(ctx, record("a@x.com", "hash-a", future)))
		require.NoError(t, repo.PutRefreshToken(ctx, record("b@x.com", "hash-b", future)))
		require.NoError(t, repo.DeleteRefreshToken(ctx, "a@x.com"))

		got, err := repo.GetRefreshToken(ctx, "b@x.com")
		require.NoError(t, err)
		require.Equal(t, "hash-b", got.TokenHash)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.PutRefreshToken(ctx, record("a@x.com", "hash-1", future)))
		require.NoError(t, repo.DeleteRefreshToken(ctx, "a@x.com"))
		require.NoError(t, repo.DeleteRefreshToken(ctx, "a@x.com"))

		_, err := repo.GetRefreshToken(ctx, "a@x.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("rotate", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.PutRefreshToken(ctx, record("a@x.com", "hash-1", future)))

		require.NoError(t, repo.RotateRefreshToken(ctx, "a@x.com", "hash-1", record("a@x.com", "hash-2", future)))
		got, err := repo.GetRefreshToken(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, "hash-2", got.TokenHash)

		err = repo.RotateRefreshToken(ctx, "a@x.com", "hash-1", record("a@x.com", "hash-3", future))
		require.ErrorIs(t, err, store.ErrStale)

		got, err = repo.GetRefreshToken(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, "hash-2", got.TokenHash, "stale rotate must not write")
	})

	t.Run("rotate missing", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.RotateRefreshToken(ctx, "a@x.com", "hash-1", record("a@x.com", "hash-2", future))
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent rotate has one winner", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.PutRefreshToken(ctx, record("a@x.com", "hash-0", future)))

		const n = 8
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				next := record("a@x.com", "hash-next-"+string(rune('a'+i)), future)
				errs[i] = repo.RotateRefreshToken(ctx, "a@x.com", "hash-0", next)
			}()
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			require.ErrorIs(t, err, store.ErrStale)
		}
		require.Equal(t, 1, wins)
	})

	t.Run("delete expired", func(t *testing.T) {
		repo := newRepo(t)
		now := time.Now().UTC()
		require.NoError(t, repo.PutRefreshToken(ctx, record("old@x.com", "h1", now.Add(-time.Hour))))
		require.NoError(t, repo.PutRefreshToken(ctx, record("new@x.com", "h2", now.Add(time.Hour))))

		_, err := repo.DeleteExpiredRefreshTokens(ctx, now)
		require.NoError(t, err)

		_, err = repo.GetRefreshToken(ctx, "old@x.com")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = repo.GetRefreshToken(ctx, "new@x.com")
		require.NoError(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		repo := newRepo(t)
		cctx, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
		defer cancel()

		_, err := repo.GetRefreshToken(cctx, "a@x.com")
		require.ErrorIs(t, err, store.ErrTimeout)
	})
}

// Users exercises a Users implementation backed by an empty store.
func Users(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()
	ctx := context.Background()

	user := func(email string) domain.User {
		now := time.Now().UTC().Truncate(time.Second)
		return domain.User{
			ID:           "id-" + email,
			Email:        email,
			Nickname:     "nick-" + email[:1],
			PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
			Authorities:  []string{domain.DefaultAuthority},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	t.Run("create and get", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.Users().CreateUser(ctx, user("a@x.com")))

		got, err := st.Users().GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, "a@x.com", got.Email)
		require.Equal(t, "nick-a", got.Nickname)
		require.Equal(t, []string{domain.DefaultAuthority}, got.Authorities)
	})

	t.Run("duplicate email", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.Users().CreateUser(ctx, user("a@x.com")))

		dup := user("a@x.com")
		dup.ID = "id-duplicate"
		require.ErrorIs(t, st.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("missing", func(t *testing.T) {
		st := newStore(t)
		_, err := st.Users().GetUserByEmail(ctx, "ghost@x.com")
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, st.Users().UpdateNickname(ctx, "ghost@x.com", "n"), store.ErrNotFound)
		require.ErrorIs(t, st.Users().UpdatePasswordHash(ctx, "ghost@x.com", "h"), store.ErrNotFound)
		require.ErrorIs(t, st.Users().DeleteUser(ctx, "ghost@x.com"), store.ErrNotFound)
	})

	t.Run("updates", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.Users().CreateUser(ctx, user("a@x.com")))
		require.NoError(t, st.Users().UpdateNickname(ctx, "a@x.com", "renamed"))
		require.NoError(t, st.Users().UpdatePasswordHash(ctx, "a@x.com", "new-hash"))

		got, err := st.Users().GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, "renamed", got.Nickname)
		require.Equal(t, "new-hash", got.PasswordHash)
	})

	t.Run("delete", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.Users().CreateUser(ctx, user("a@x.com")))
		require.NoError(t, st.Users().DeleteUser(ctx, "a@x.com"))

		_, err := st.Users().GetUserByEmail(ctx, "a@x.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		st := newStore(t)
		err := st.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Users().CreateUser(ctx, user("a@x.com")); err != nil {
				return err
			}
			return store.ErrStale
		})
		require.ErrorIs(t, err, store.ErrStale)

		_, err = st.Users().GetUserByEmail(ctx, "a@x.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("transaction commit", func(t *testing.T) {
		st := newStore(t)
		err := st.WithTx(ctx, func(tx store.Tx) error {
			return tx.Users().CreateUser(ctx, user("a@x.com"))
		})
		require.NoError(t, err)

		_, err = st.Users().GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
	})
}
