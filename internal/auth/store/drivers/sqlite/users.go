package sqlite

import (
	"context"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, nickname, password_hash, authorities, created_at, updated_at`

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var (
		u     domain.User
		auths string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.Nickname, &u.PasswordHash, &auths, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	u.Authorities = splitAuthorities(auths)
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Nickname, u.PasswordHash, joinAuthorities(u.Authorities),
		ts(u.CreatedAt), ts(u.UpdatedAt),
	)
	return mapErr(err)
}

func (r *usersRepo) UpdateNickname(ctx context.Context, email, nickname string) error {
	return mustAffect(r.db.ExecContext(ctx,
		`UPDATE users SET nickname = ?, updated_at = ? WHERE email = ?`,
		nickname, ts(time.Now()), email,
	))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, email, newHash string) error {
	return mustAffect(r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE email = ?`,
		newHash, ts(time.Now()), email,
	))
}

func (r *usersRepo) DeleteUser(ctx context.Context, email string) error {
	return mustAffect(r.db.ExecContext(ctx, `DELETE FROM users WHERE email = ?`, email))
}
