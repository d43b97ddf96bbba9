package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var (
		u     domain.User
		auths string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, nickname, password_hash, authorities, created_at, updated_at
		FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Nickname, &u.PasswordHash, &auths, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	u.Authorities = splitAuthorities(auths)
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, nickname, password_hash, authorities, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Nickname, u.PasswordHash, strings.Join(u.Authorities, " "),
		u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return mapErr(err)
}

func (r *usersRepo) UpdateNickname(ctx context.Context, email, nickname string) error {
	return mustAffect(r.db.ExecContext(ctx,
		`UPDATE users SET nickname = $1, updated_at = $2 WHERE email = $3`,
		nickname, time.Now().UTC(), email,
	))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, email, newHash string) error {
	return mustAffect(r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE email = $3`,
		newHash, time.Now().UTC(), email,
	))
}

func (r *usersRepo) DeleteUser(ctx context.Context, email string) error {
	return mustAffect(r.db.ExecContext(ctx, `DELETE FROM users WHERE email = $1`, email))
}
