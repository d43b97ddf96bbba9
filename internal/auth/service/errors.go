package service

import (
	"errors"
	"fmt"

	"github.com/plus1250/jobatrend/internal/auth/store"
)

// Client-attributable outcomes. Callers map these to 401/403/409 and never
// retry them.
var (
	ErrUnknownSubject     = errors.New("unknown_subject")
	ErrBadCredential      = errors.New("bad_credential")
	ErrRefreshInvalid     = errors.New("refresh_invalid")
	ErrAccessTokenCorrupt = errors.New("access_token_corrupt")
	ErrSessionNotFound    = errors.New("session_not_found")
	ErrRefreshMismatch    = errors.New("refresh_mismatch")
	ErrEmailTaken         = errors.New("email_taken")
)

// ErrStoreTimeout is transient. The caller may retry once with backoff.
var ErrStoreTimeout = errors.New("store_timeout")

// storeErr turns store timeouts into ErrStoreTimeout and passes anything
// else through untouched.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(store.MapTimeout(err), store.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrStoreTimeout, err)
	}
	return err
}

// outcome is the metrics label for an operation result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnknownSubject):
		return "unknown_subject"
	case errors.Is(err, ErrBadCredential):
		return "bad_credential"
	case errors.Is(err, ErrRefreshInvalid):
		return "refresh_invalid"
	case errors.Is(err, ErrAccessTokenCorrupt):
		return "access_token_corrupt"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrRefreshMismatch):
		return "refresh_mismatch"
	case errors.Is(err, ErrStoreTimeout):
		return "store_timeout"
	default:
		return "error"
	}
}
