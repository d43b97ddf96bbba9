package http

import (
	"errors"
	"net/http"

	"github.com/plus1250/jobatrend/internal/auth/service"
	"github.com/plus1250/jobatrend/pkg/authsdk"
	"github.com/plus1250/jobatrend/pkg/slogx"
)

// apiError maps a service error onto its wire form. Unknown errors become
// server_error.
func apiError(err error) *authsdk.APIError {
	switch {
	case errors.Is(err, service.ErrUnknownSubject):
		return authsdk.ErrUnknownSubject
	case errors.Is(err, service.ErrBadCredential):
		return authsdk.ErrBadCredential
	case errors.Is(err, service.ErrRefreshInvalid):
		return authsdk.ErrRefreshInvalid
	case errors.Is(err, service.ErrAccessTokenCorrupt):
		return authsdk.ErrAccessTokenCorrupt
	case errors.Is(err, service.ErrSessionNotFound):
		return authsdk.ErrSessionNotFound
	case errors.Is(err, service.ErrRefreshMismatch):
		return authsdk.ErrRefreshMismatch
	case errors.Is(err, service.ErrEmailTaken):
		return authsdk.ErrEmailTaken
	case errors.Is(err, service.ErrStoreTimeout):
		return authsdk.ErrTemporarilyUnavailable
	default:
		return authsdk.ErrServerError
	}
}

// writeServiceError logs err at a level matching who is at fault and writes
// the mapped response.
func writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	log := slogx.FromContext(r.Context())
	apiErr := apiError(err)

	switch apiErr.StatusCode {
	case http.StatusInternalServerError:
		log.Error(msg, "err", err)
	case http.StatusServiceUnavailable:
		log.Warn(msg, "err", err)
	default:
		log.Info(msg, "err", err, "code", apiErr.Code)
	}
	apiErr.WriteError(w)
}

// invalidRequest writes a 400 with a specific description.
func invalidRequest(w http.ResponseWriter, desc string) {
	(&authsdk.APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        authsdk.ErrorCodeInvalidRequest,
		Description: desc,
	}).WriteError(w)
}
