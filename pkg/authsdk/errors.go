package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/plus1250/jobatrend/pkg/httpx"
)

const (
	ErrorCodeInvalidRequest         = "invalid_request"
	ErrorCodeInvalidToken           = "invalid_token"
	ErrorCodeInsufficientScope      = "insufficient_scope"
	ErrorCodeUnknownSubject         = "unknown_subject"
	ErrorCodeBadCredential          = "bad_credential"
	ErrorCodeRefreshInvalid         = "refresh_invalid"
	ErrorCodeAccessTokenCorrupt     = "access_token_corrupt"
	ErrorCodeSessionNotFound        = "session_not_found"
	ErrorCodeRefreshMismatch        = "refresh_mismatch"
	ErrorCodeEmailTaken             = "email_taken"
	ErrorCodeRateLimited            = "rate_limit_exceeded"
	ErrorCodeTemporarilyUnavailable = "temporarily_unavailable"
	ErrorCodeServerError            = "server_error"
)

// APIError is the JSON error body every endpoint returns. It is shared by
// the server, which writes it, and the client, which parses it back.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on Code, so errors.Is(err, authsdk.ErrRefreshMismatch) works
// on errors parsed from a response.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// Retriable reports whether the same request may succeed if sent again
// after a short backoff.
func (e *APIError) Retriable() bool {
	return e.Code == ErrorCodeTemporarilyUnavailable || e.Code == ErrorCodeRateLimited
}

// WriteError writes e as the response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	if e.Code == ErrorCodeTemporarilyUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
	})
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required fields",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid or expired",
	}

	ErrInsufficientScope = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientScope,
		Description: "the access token does not carry the required authority",
	}

	ErrUnknownSubject = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnknownSubject,
		Description: "no account is registered for this email",
	}

	ErrBadCredential = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeBadCredential,
		Description: "wrong password",
	}

	// ErrRefreshInvalid means the refresh token is expired or not genuine.
	// The client must log in again.
	ErrRefreshInvalid = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeRefreshInvalid,
		Description: "the refresh token is invalid or expired",
	}

	ErrAccessTokenCorrupt = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeAccessTokenCorrupt,
		Description: "the access token has been tampered with",
	}

	ErrSessionNotFound = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeSessionNotFound,
		Description: "the session has ended",
	}

	// ErrRefreshMismatch is the replay signal: the refresh token was already
	// rotated out, or belongs to someone else.
	ErrRefreshMismatch = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeRefreshMismatch,
		Description: "the refresh token does not match the current session",
	}

	ErrEmailTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeEmailTaken,
		Description: "an account already exists for this email",
	}

	ErrTemporarilyUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeTemporarilyUnavailable,
		Description: "the service is temporarily unavailable, retry shortly",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        ErrorCodeRateLimited,
			Description: "too many requests",
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
