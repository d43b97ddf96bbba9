package store

import (
	"context"

	"github.com/plus1250/jobatrend/internal/auth/domain"
	"github.com/plus1250/jobatrend/pkg/cryptox"
)

// CredentialAdapter exposes Users as the credential lookup login needs.
type CredentialAdapter struct {
	users Users
}

// NewCredentialAdapter wraps a Users repository.
func NewCredentialAdapter(users Users) *CredentialAdapter {
	return &CredentialAdapter{users: users}
}

// FindByEmail returns ErrNotFound for unknown subjects.
func (a *CredentialAdapter) FindByEmail(ctx context.Context, email string) (domain.Credential, error) {
	u, err := a.users.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return domain.Credential{}, err
	}
	return domain.Credential{
		Subject:      u.Email,
		PasswordHash: u.PasswordHash,
		Authorities:  u.Authorities,
	}, nil
}

// Matches compares a raw password against a stored hash in constant time.
func (a *CredentialAdapter) Matches(raw, hash string) bool {
	return cryptox.VerifyPassword(raw, hash) == nil
}
