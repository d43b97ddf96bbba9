package store

import (
	"context"
	"errors"
	"time"

	"github.com/plus1250/jobatrend/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrStale is returned by a compare-and-swap when the stored value no
	// longer matches the expected one.
	ErrStale = errors.New("store: stale value")

	// ErrTimeout wraps a deadline or driver timeout. It is transient.
	ErrTimeout = errors.New("store: timeout")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so a Tx-scoped store can never open a nested transaction.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByEmail looks up by normalised email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateNickname mutates the nickname and bumps updated_at.
	UpdateNickname(ctx context.Context, email, nickname string) error

	// UpdatePasswordHash sets the password hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, email, newHash string) error

	// DeleteUser removes the user. Refresh records are not touched.
	DeleteUser(ctx context.Context, email string) error
}

// RefreshTokens holds at most one refresh record per subject.
type RefreshTokens interface {
	// PutRefreshToken creates or atomically replaces the subject's record.
	PutRefreshToken(ctx context.Context, rec domain.RefreshRecord) error

	// GetRefreshToken returns ErrNotFound when the subject has no record.
	GetRefreshToken(ctx context.Context, subject string) (domain.RefreshRecord, error)

	// DeleteRefreshToken is idempotent.
	DeleteRefreshToken(ctx context.Context, subject string) error

	// RotateRefreshToken replaces the record only if its current hash equals
	// expectedHash. ErrStale if it does not, ErrNotFound if there is no record.
	RotateRefreshToken(ctx context.Context, subject, expectedHash string, next domain.RefreshRecord) error

	// DeleteExpiredRefreshTokens removes records with expires_at <= now and
	// reports how many went.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}
