package authapi

import (
	"time"

	"freight/cmd/identity"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Force    bool   `json:"force,omitempty"`
}

type loginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int64    `json:"expires_in"`
	User        userView `json:"user"`
}

// sessionConflictResponse is the 423 body. It deliberately keeps a flat
// shape instead of the usual {"error":{...}} envelope so clients can offer
// a forced-login prompt off one well-known document.
type sessionConflictResponse struct {
	Code          string            `json:"code"`
	Message       string            `json:"message"`
	ActiveSession activeSessionView `json:"active_session"`
}

type activeSessionView struct {
	ExpiresAt time.Time `json:"expires_at"`
}

type forgotPasswordRequest struct {
	Username    string `json:"username"`
	NewPassword string `json:"new_password"`
}

type userView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(u identity.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}
