package service

import (
	"context"
	"errors"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/domain"
	"github.com/plus1250/jobatrend/internal/auth/obs"
	"github.com/plus1250/jobatrend/internal/auth/store"
	"github.com/plus1250/jobatrend/pkg/cryptox"
	"github.com/plus1250/jobatrend/pkg/idx"
	"github.com/plus1250/jobatrend/pkg/slogx"
)

// UserService manages accounts. Session state is always changed through
// Tokens, never written directly.
type UserService struct {
	Store  store.Store
	Tokens *TokenService
	Now    func() time.Time

	// StoreTimeout defaults to DefaultStoreTimeout.
	StoreTimeout time.Duration

	// Metrics may be nil.
	Metrics *obs.Metrics
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *UserService) withStore(ctx context.Context, op string, fn func(ctx context.Context, users store.Users) error) error {
	return withStoreDeadline(ctx, s.StoreTimeout, s.Metrics, op, func(ctx context.Context) error {
		return fn(ctx, s.Store.Users())
	})
}

// Register creates an account with the default authority. The email is
// normalised and doubles as the token subject.
func (s *UserService) Register(ctx context.Context, email, password, nickname string) (domain.User, error) {
	l := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Error("failed to hash password", "error", err)
		return domain.User{}, err
	}

	now := s.now().UTC()
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		Nickname:     nickname,
		PasswordHash: hash,
		Authorities:  []string{domain.DefaultAuthority},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.withStore(ctx, "create_user", func(ctx context.Context, users store.Users) error {
		return users.CreateUser(ctx, u)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		l.Error("failed to create user", "error", err)
		return domain.User{}, err
	}

	l.Info("user registered", "user_id", u.ID)
	return u, nil
}

// Profile returns the account behind email.
func (s *UserService) Profile(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := s.withStore(ctx, "get_user", func(ctx context.Context, users store.Users) error {
		var err error
		u, err = users.GetUserByEmail(ctx, domain.NormalizeEmail(email))
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUnknownSubject
	}
	return u, err
}

// NicknameMatches reports whether email is registered under nickname.
// Unknown emails simply do not match.
func (s *UserService) NicknameMatches(ctx context.Context, email, nickname string) (bool, error) {
	u, err := s.Profile(ctx, email)
	if errors.Is(err, ErrUnknownSubject) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Nickname == nickname, nil
}

func (s *UserService) UpdateNickname(ctx context.Context, email, nickname string) error {
	err := s.withStore(ctx, "update_nickname", func(ctx context.Context, users store.Users) error {
		return users.UpdateNickname(ctx, domain.NormalizeEmail(email), nickname)
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownSubject
	}
	return err
}

// UpdatePassword rehashes and ends the current session, so every client
// has to log in again with the new password.
func (s *UserService) UpdatePassword(ctx context.Context, email, newPassword string) error {
	l := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		l.Error("failed to hash password", "error", err)
		return err
	}

	err = s.withStore(ctx, "update_password", func(ctx context.Context, users store.Users) error {
		return users.UpdatePasswordHash(ctx, email, hash)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownSubject
		}
		return err
	}

	l.Info("password changed")
	return s.Tokens.Logout(ctx, email)
}

// DeleteAccount removes the account after re-checking the password, then
// ends its session.
func (s *UserService) DeleteAccount(ctx context.Context, email, password string) error {
	l := slogx.FromContext(ctx)

	u, err := s.Profile(ctx, email)
	if err != nil {
		return err
	}
	if cryptox.VerifyPassword(password, u.PasswordHash) != nil {
		l.Info("account deletion password mismatch")
		return ErrBadCredential
	}

	err = s.withStore(ctx, "delete_user", func(ctx context.Context, users store.Users) error {
		return users.DeleteUser(ctx, u.Email)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownSubject
		}
		return err
	}

	l.Info("account deleted", "user_id", u.ID)
	return s.Tokens.Logout(ctx, u.Email)
}
