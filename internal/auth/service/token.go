package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/domain"
	"github.com/plus1250/jobatrend/internal/auth/obs"
	"github.com/plus1250/jobatrend/internal/auth/store"
	"github.com/plus1250/jobatrend/pkg/cryptox"
	"github.com/plus1250/jobatrend/pkg/jwtx"
	"github.com/plus1250/jobatrend/pkg/slogx"
)

// DefaultStoreTimeout bounds every refresh and credential store call.
const DefaultStoreTimeout = 2 * time.Second

// CredentialStore is how login and reissue learn about a subject.
type CredentialStore interface {
	// FindByEmail returns store.ErrNotFound for unknown subjects.
	FindByEmail(ctx context.Context, email string) (domain.Credential, error)

	// Matches compares a raw password against a stored hash in constant time.
	Matches(raw, hash string) bool
}

// TokenService issues, rotates and validates token pairs. It is the only
// writer of refresh records.
type TokenService struct {
	Codec       *jwtx.Codec
	Credentials CredentialStore
	Refresh     store.RefreshTokens

	// StoreTimeout defaults to DefaultStoreTimeout.
	StoreTimeout time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	// Metrics may be nil.
	Metrics *obs.Metrics
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// withStore runs fn under the store deadline and records its latency.
func (s *TokenService) withStore(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return withStoreDeadline(ctx, s.StoreTimeout, s.Metrics, op, fn)
}

// withStoreDeadline bounds one store call by timeout (DefaultStoreTimeout
// when unset) and reports a deadline as ErrStoreTimeout.
func withStoreDeadline(ctx context.Context, timeout time.Duration, m *obs.Metrics, op string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer m.ObserveStore(op, time.Now())
	return storeErr(fn(ctx))
}

// Login checks the password and starts a new session, replacing any
// previous one for the subject.
func (s *TokenService) Login(ctx context.Context, email, password string) (pair domain.TokenPair, err error) {
	l := slogx.FromContext(ctx)
	defer func() { s.Metrics.Outcome("login", outcome(err)) }()

	var cred domain.Credential
	err = s.withStore(ctx, "find_credential", func(ctx context.Context) error {
		var err error
		cred, err = s.Credentials.FindByEmail(ctx, email)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("login for unknown subject")
			return domain.TokenPair{}, ErrUnknownSubject
		}
		l.Error("failed to look up credential", "error", err)
		return domain.TokenPair{}, err
	}

	if !s.Credentials.Matches(password, cred.PasswordHash) {
		l.Info("login password mismatch", "subject", cred.Subject)
		return domain.TokenPair{}, ErrBadCredential
	}

	now := s.now()
	pair, refreshExp, err := s.mintPair(cred.Subject, cred.Authorities, now)
	if err != nil {
		l.Error("failed to mint token pair", "error", err)
		return domain.TokenPair{}, err
	}

	rec := domain.RefreshRecord{
		Subject:   cred.Subject,
		TokenHash: cryptox.FingerprintToken(pair.RefreshToken),
		ExpiresAt: refreshExp,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.withStore(ctx, "put_refresh", func(ctx context.Context) error {
		return s.Refresh.PutRefreshToken(ctx, rec)
	}); err != nil {
		l.Error("failed to persist refresh token", "error", err, "subject", cred.Subject)
		return domain.TokenPair{}, err
	}

	l.Info("login succeeded", "subject", cred.Subject)
	return pair, nil
}

// Reissue trades a valid refresh token, plus the access token it was issued
// with, for a new pair. The presented refresh token is rotated out; reusing
// it afterwards fails with ErrRefreshMismatch.
func (s *TokenService) Reissue(ctx context.Context, accessToken, refreshToken string) (pair domain.TokenPair, err error) {
	l := slogx.FromContext(ctx)
	defer func() { s.Metrics.Outcome("reissue", outcome(err)) }()

	now := s.now()

	rc, err := s.Codec.Verify(refreshToken, jwtx.TypeRefresh, now)
	if err != nil {
		l.Info("refresh token rejected", "failure", jwtx.Classify(err).String(), "error", err)
		return domain.TokenPair{}, fmt.Errorf("%w: %w", ErrRefreshInvalid, err)
	}

	// Expiry is tolerated here: the access token only names the subject.
	ac, err := s.Codec.VerifyIgnoringExpiry(accessToken, jwtx.TypeAccess)
	if err != nil {
		l.Warn("access token corrupt on reissue", "failure", jwtx.Classify(err).String(), "error", err)
		return domain.TokenPair{}, fmt.Errorf("%w: %w", ErrAccessTokenCorrupt, err)
	}
	subject := ac.Subject
	l = l.With("subject", subject)

	var rec domain.RefreshRecord
	err = s.withStore(ctx, "get_refresh", func(ctx context.Context) error {
		var err error
		rec, err = s.Refresh.GetRefreshToken(ctx, subject)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("reissue without a session")
			return domain.TokenPair{}, ErrSessionNotFound
		}
		l.Error("failed to load refresh record", "error", err)
		return domain.TokenPair{}, err
	}

	presented := cryptox.FingerprintToken(refreshToken)
	if rc.Subject != subject || !cryptox.FingerprintsEqual(presented, rec.TokenHash) {
		l.Warn("refresh token replay or subject mismatch", "token_subject", rc.Subject)
		return domain.TokenPair{}, ErrRefreshMismatch
	}

	// Authorities come from the subject as it is now, not from the old token.
	var cred domain.Credential
	err = s.withStore(ctx, "find_credential", func(ctx context.Context) error {
		var err error
		cred, err = s.Credentials.FindByEmail(ctx, subject)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("reissue for deleted subject")
			if err := s.withStore(ctx, "delete_refresh", func(ctx context.Context) error {
				return s.Refresh.DeleteRefreshToken(ctx, subject)
			}); err != nil {
				l.Error("failed to drop refresh record of deleted subject", "error", err)
			}
			return domain.TokenPair{}, ErrUnknownSubject
		}
		l.Error("failed to look up credential", "error", err)
		return domain.TokenPair{}, err
	}

	pair, refreshExp, err := s.mintPair(cred.Subject, cred.Authorities, now)
	if err != nil {
		l.Error("failed to mint token pair", "error", err)
		return domain.TokenPair{}, err
	}

	next := domain.RefreshRecord{
		Subject:   subject,
		TokenHash: cryptox.FingerprintToken(pair.RefreshToken),
		ExpiresAt: refreshExp,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: now,
	}
	err = s.withStore(ctx, "rotate_refresh", func(ctx context.Context) error {
		return s.Refresh.RotateRefreshToken(ctx, subject, presented, next)
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrStale):
		l.Warn("refresh token lost rotation race")
		return domain.TokenPair{}, ErrRefreshMismatch
	case errors.Is(err, store.ErrNotFound):
		l.Info("session ended during reissue")
		return domain.TokenPair{}, ErrSessionNotFound
	default:
		l.Error("failed to rotate refresh token", "error", err)
		return domain.TokenPair{}, err
	}

	l.Debug("refresh token rotated")
	return pair, nil
}

// ValidateAccess verifies an access token without touching any store. The
// returned error is a jwtx error; use jwtx.Classify to branch on it.
func (s *TokenService) ValidateAccess(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.Codec.Verify(token, jwtx.TypeAccess, s.now())
	if err != nil {
		s.Metrics.Outcome("validate", jwtx.Classify(err).String())
		return domain.Identity{}, err
	}
	s.Metrics.Outcome("validate", "ok")
	return domain.Identity{Subject: claims.Subject, Authorities: claims.Authorities}, nil
}

// Logout ends the subject's session. It is idempotent.
func (s *TokenService) Logout(ctx context.Context, subject string) error {
	err := s.withStore(ctx, "delete_refresh", func(ctx context.Context) error {
		return s.Refresh.DeleteRefreshToken(ctx, subject)
	})
	if err != nil {
		slogx.FromContext(ctx).Error("failed to delete refresh token", "error", err, slog.String("subject", subject))
	}
	s.Metrics.Outcome("logout", outcome(err))
	return err
}

func (s *TokenService) mintPair(subject string, authorities []string, now time.Time) (domain.TokenPair, time.Time, error) {
	access, err := s.Codec.Mint(subject, authorities, jwtx.TypeAccess, now)
	if err != nil {
		return domain.TokenPair{}, time.Time{}, err
	}
	refresh, err := s.Codec.Mint(subject, nil, jwtx.TypeRefresh, now)
	if err != nil {
		return domain.TokenPair{}, time.Time{}, err
	}

	return domain.TokenPair{
		AccessToken:           access.Token,
		RefreshToken:          refresh.Token,
		TokenType:             "Bearer",
		ExpiresIn:             int64(s.Codec.TTL(jwtx.TypeAccess).Seconds()),
		AccessTokenExpiresAt:  access.ExpiresAt(),
		RefreshTokenExpiresAt: refresh.ExpiresAt(),
	}, refresh.ExpiresAt(), nil
}

// DeleteExpiredSessions removes every refresh record past its expiry at now
// and reports how many went.
func (s *TokenService) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.withStore(ctx, "delete_expired", func(ctx context.Context) error {
		var err error
		n, err = s.Refresh.DeleteExpiredRefreshTokens(ctx, now)
		return err
	})
	return n, err
}
