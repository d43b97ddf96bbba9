package sqlite

import (
	"context"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/domain"
	"github.com/plus1250/jobatrend/internal/auth/store"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) PutRefreshToken(ctx context.Context, rec domain.RefreshRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (subject, token_hash, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (subject) DO UPDATE SET
			token_hash = excluded.token_hash,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		rec.Subject, rec.TokenHash, ts(rec.ExpiresAt), ts(rec.CreatedAt), ts(rec.UpdatedAt),
	)
	return mapErr(err)
}

func (r *refreshTokensRepo) GetRefreshToken(ctx context.Context, subject string) (domain.RefreshRecord, error) {
	var rec domain.RefreshRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT subject, token_hash, expires_at, created_at, updated_at
		FROM refresh_tokens WHERE subject = ?`, subject,
	).Scan(&rec.Subject, &rec.TokenHash, &rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return domain.RefreshRecord{}, mapErr(err)
	}
	return rec, nil
}

func (r *refreshTokensRepo) DeleteRefreshToken(ctx context.Context, subject string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE subject = ?`, subject)
	return mapErr(err)
}

func (r *refreshTokensRepo) RotateRefreshToken(
	ctx context.Context,
	subject, expectedHash string,
	next domain.RefreshRecord,
) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET token_hash = ?, expires_at = ?, updated_at = ?
		WHERE subject = ? AND token_hash = ?`,
		next.TokenHash, ts(next.ExpiresAt), ts(next.UpdatedAt), subject, expectedHash,
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

	// Nothing matched: either the record is gone or someone rotated first.
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM refresh_tokens WHERE subject = ?`, subject).Scan(&one)
	if err != nil {
		return mapErr(err)
	}
	return store.ErrStale
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, ts(now))
	if err != nil {
		return 0, mapErr(err)
	}
	n, err := res.RowsAffected()
	return n, mapErr(err)
}
