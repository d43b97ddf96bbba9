package authsdk

import (
	"context"
	"net/http"
)

// Me returns the authenticated account.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/users/me", nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Session) UpdateNickname(ctx context.Context, nickname string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPatch, "/v1/users/me/nickname", NicknameRequest{Nickname: nickname})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// UpdatePassword changes the password. The server ends the session, so
// this Session is closed afterwards and the caller must log in again.
func (s *Session) UpdatePassword(ctx context.Context, password string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/users/me/password", PasswordRequest{Password: password})
	if err != nil {
		return err
	}
	if err := checkStatusNoContent(resp); err != nil {
		return err
	}
	s.close()
	return nil
}

// DeleteAccount removes the account after the server re-checks password.
func (s *Session) DeleteAccount(ctx context.Context, password string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/users/me", DeleteAccountRequest{Password: password})
	if err != nil {
		return err
	}
	if err := checkStatusNoContent(resp); err != nil {
		return err
	}
	s.close()
	return nil
}

// Logout ends the session on the server. Logging out twice is harmless.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	if err := checkStatusNoContent(resp); err != nil {
		return err
	}
	s.close()
	return nil
}
