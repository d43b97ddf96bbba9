package http

import (
	"net/http"
	"strings"

	"github.com/plus1250/jobatrend/internal/auth/domain"
	"github.com/plus1250/jobatrend/internal/auth/service"
	"github.com/plus1250/jobatrend/pkg/authsdk"
	"github.com/plus1250/jobatrend/pkg/httpx"
)

// UsersHandler serves account endpoints. Everything under /v1/users/me acts
// on the bearer's subject.
type UsersHandler struct {
	UserService *service.UserService
}

func userResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		UserID:      u.ID,
		Email:       u.Email,
		Nickname:    u.Nickname,
		Authorities: u.Authorities,
		CreatedAt:   u.CreatedAt,
	}
}

// HandleRegister handles POST /v1/users
//
//	@Summary		Register
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"email, password, nickname"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse	"email_taken"
//	@Router			/v1/users [post].
func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.Nickname) == "" {
		invalidRequest(w, "email, password and nickname are required")
		return
	}

	user, err := h.UserService.Register(r.Context(), req.Email, req.Password, strings.TrimSpace(req.Nickname))
	if err != nil {
		writeServiceError(w, r, "register failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, userResponse(user))
}

// HandleMe handles GET /v1/users/me
//
//	@Summary		Current account
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token, unknown_subject"
//	@Router			/v1/users/me [get].
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.Profile(r.Context(), httpx.SubjectFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, "profile lookup failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userResponse(user))
}

// HandleNickname handles PATCH /v1/users/me/nickname
//
//	@Summary		Change nickname
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.NicknameRequest	true	"nickname"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token, unknown_subject"
//	@Router			/v1/users/me/nickname [patch].
func (h *UsersHandler) HandleNickname(w http.ResponseWriter, r *http.Request) {
	var req authsdk.NicknameRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidRequest(w, err.Error())
		return
	}
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		invalidRequest(w, "nickname is required")
		return
	}

	if err := h.UserService.UpdateNickname(r.Context(), httpx.SubjectFromContext(r.Context()), nickname); err != nil {
		writeServiceError(w, r, "nickname update failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandlePassword handles PUT /v1/users/me/password
//
//	@Summary		Change password
//	@Description	Sets a new password and ends the current session; the caller must log in again.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.PasswordRequest	true	"password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token, unknown_subject"
//	@Router			/v1/users/me/password [put].
func (h *UsersHandler) HandlePassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.PasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidRequest(w, err.Error())
		return
	}
	if req.Password == "" {
		invalidRequest(w, "password is required")
		return
	}

	if err := h.UserService.UpdatePassword(r.Context(), httpx.SubjectFromContext(r.Context()), req.Password); err != nil {
		writeServiceError(w, r, "password update failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /v1/users/me
//
//	@Summary		Delete account
//	@Description	Removes the account after re-checking the password, and ends its session.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.DeleteAccountRequest	true	"password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token, unknown_subject, bad_credential"
//	@Router			/v1/users/me [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	var req authsdk.DeleteAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidRequest(w, err.Error())
		return
	}

	if err := h.UserService.DeleteAccount(r.Context(), httpx.SubjectFromContext(r.Context()), req.Password); err != nil {
		writeServiceError(w, r, "account deletion failed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleNicknameCheck handles POST /v1/users/nickname-check
//
//	@Summary		Check nickname
//	@Description	Reports whether the email is registered under the nickname. Unknown emails answer false.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.NicknameCheckRequest	true	"email, nickname"
//	@Success		200		{object}	authsdk.NicknameCheckResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Router			/v1/users/nickname-check [post].
func (h *UsersHandler) HandleNicknameCheck(w http.ResponseWriter, r *http.Request) {
	var req authsdk.NicknameCheckRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidRequest(w, err.Error())
		return
	}

	match, err := h.UserService.NicknameMatches(r.Context(), req.Email, strings.TrimSpace(req.Nickname))
	if err != nil {
		writeServiceError(w, r, "nickname check failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.NicknameCheckResponse{Match: match})
}
