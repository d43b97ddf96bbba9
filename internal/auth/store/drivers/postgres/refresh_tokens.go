package postgres

import (
	"context"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/domain"
	"github.com/plus1250/jobatrend/internal/auth/store"
)

type refreshTokensRepo struct {
	db dbtx
}

const (
	putRefreshSQL = `
		INSERT INTO refresh_tokens (subject, token_hash, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject) DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`

	getRefreshSQL = `
		SELECT subject, token_hash, expires_at, created_at, updated_at
		FROM refresh_tokens WHERE subject = $1`

	deleteRefreshSQL = `DELETE FROM refresh_tokens WHERE subject = $1`

	// The row lock taken by UPDATE serialises concurrent rotations, and the
	// second one re-evaluates token_hash against the committed value.
	rotateRefreshSQL = `
		UPDATE refresh_tokens
		SET token_hash = $1, expires_at = $2, updated_at = $3
		WHERE subject = $4 AND token_hash = $5`

	existsRefreshSQL = `SELECT 1 FROM refresh_tokens WHERE subject = $1`

	deleteExpiredRefreshSQL = `DELETE FROM refresh_tokens WHERE expires_at <= $1`
)

func (r *refreshTokensRepo) PutRefreshToken(ctx context.Context, rec domain.RefreshRecord) error {
	_, err := r.db.ExecContext(ctx, putRefreshSQL,
		rec.Subject, rec.TokenHash, rec.ExpiresAt.UTC(), rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	)
	return mapErr(err)
}

func (r *refreshTokensRepo) GetRefreshToken(ctx context.Context, subject string) (domain.RefreshRecord, error) {
	var rec domain.RefreshRecord
	err := r.db.QueryRowContext(ctx, getRefreshSQL, subject).
		Scan(&rec.Subject, &rec.TokenHash, &rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return domain.RefreshRecord{}, mapErr(err)
	}
	return rec, nil
}

func (r *refreshTokensRepo) DeleteRefreshToken(ctx context.Context, subject string) error {
	_, err := r.db.ExecContext(ctx, deleteRefreshSQL, subject)
	return mapErr(err)
}

func (r *refreshTokensRepo) RotateRefreshToken(
	ctx context.Context,
	subject, expectedHash string,
	next domain.RefreshRecord,
) error {
	res, err := r.db.ExecContext(ctx, rotateRefreshSQL,
		next.TokenHash, next.ExpiresAt.UTC(), next.UpdatedAt.UTC(), subject, expectedHash,
	)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 1 {
		return nil
	}

	var one int
	if err := r.db.QueryRowContext(ctx, existsRefreshSQL, subject).Scan(&one); err != nil {
		return mapErr(err)
	}
	return store.ErrStale
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteExpiredRefreshSQL, now.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	n, err := res.RowsAffected()
	return n, mapErr(err)
}
