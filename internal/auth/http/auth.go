package http

import (
	"net/http"
	"strings"

	"github.com/plus1250/jobatrend/internal/auth/domain"
	"github.com/plus1250/jobatrend/internal/auth/service"
	"github.com/plus1250/jobatrend/pkg/authsdk"
	"github.com/plus1250/jobatrend/pkg/httpx"
)

// AuthHandler serves login, reissue and logout.
type AuthHandler struct {
	TokenService *service.TokenService
}

func tokenResponse(pair domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		TokenType:             pair.TokenType,
		ExpiresIn:             pair.ExpiresIn,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
	}
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Log in
//	@Description	Exchanges email and password for an access/refresh token pair. Any earlier session of the account ends.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	authsdk.TokenResponse	"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"unknown_subject, bad_credential"
//	@Failure		503		{object}	authsdk.ErrorResponse	"temporarily_unavailable"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		invalidRequest(w, "email and password are required")
		return
	}

	pair, err := h.TokenService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, "login failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleReissue handles POST /v1/auth/reissue
//
//	@Summary		Reissue tokens
//	@Description	Rotates the refresh token and mints a new pair. The access token may be expired but must be genuine. A refresh token that was already rotated out answers refresh_mismatch.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ReissueRequest	true	"access_token, refresh_token"
//	@Success		200		{object}	authsdk.TokenResponse	"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"refresh_invalid, access_token_corrupt, session_not_found, refresh_mismatch, unknown_subject"
//	@Failure		503		{object}	authsdk.ErrorResponse	"temporarily_unavailable"
//	@Router			/v1/auth/reissue [post].
func (h *AuthHandler) HandleReissue(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ReissueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidRequest(w, err.Error())
		return
	}
	if req.AccessToken == "" || req.RefreshToken == "" {
		invalidRequest(w, "access_token and refresh_token are required")
		return
	}

	pair, err := h.TokenService.Reissue(r.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, "reissue failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleLogout handles POST /v1/auth/logout
//
//	@Summary		Log out
//	@Description	Ends the caller's session. The current access token stays valid until it expires.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		503	{object}	authsdk.ErrorResponse	"temporarily_unavailable"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	subject := httpx.SubjectFromContext(r.Context())
	if subject == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.TokenService.Logout(r.Context(), subject); err != nil {
		writeServiceError(w, r, "logout failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
