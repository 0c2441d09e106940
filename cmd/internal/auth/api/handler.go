// Package authapi exposes the credential and session lifecycle over HTTP
// and provides the request gate protected routes hang off.
package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"freight/cmd/identity"
	"freight/cmd/internal/auth/session"
)

const defaultMaxBodyBytes = 1 << 16

// Handler wires HTTP auth endpoints to the session service.
type Handler struct {
	log      *slog.Logger
	sessions *session.Service

	maxBodyBytes int64
}

func NewHandler(log *slog.Logger, sessions *session.Service) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("authapi: nil session service")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:          log,
		sessions:     sessions,
		maxBodyBytes: defaultMaxBodyBytes,
	}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/auth/register", h.handleRegister)
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.Handle("/api/auth/logout", h.RequireAuth(http.HandlerFunc(h.handleLogout)))
	mux.HandleFunc("/api/auth/forgot-password", h.handleForgotPassword)
	mux.Handle("/api/auth/me", h.RequireAuth(http.HandlerFunc(h.handleMe)))
}

// Sessions returns the underlying session service for collaborators that
// authenticate out-of-band (the stream gateways).
func (h *Handler) Sessions() *session.Service {
	return h.sessions
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	role := identity.DefaultRole
	if req.Role != "" {
		parsed, err := identity.ParseRole(req.Role)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown role")
			return
		}
		role = parsed
	}

	u, err := h.sessions.Register(r.Context(), req.Username, req.Password, role)
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "username_taken", "username already registered")
		case errors.Is(err, identity.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		default:
			h.writeValidationOrInternal(w, "auth.register", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toUserView(u))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	grant, err := h.sessions.Login(r.Context(), req.Username, req.Password, req.Force)
	if err != nil {
		var conflict *session.ConflictError
		switch {
		case errors.Is(err, session.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		case errors.As(err, &conflict):
			writeJSON(w, http.StatusLocked, sessionConflictResponse{
				Code:          "active_session",
				Message:       "an active session already exists for this user",
				ActiveSession: activeSessionView{ExpiresAt: conflict.ExpiresAt},
			})
		default:
			h.log.Error("auth.login.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "internal", "login failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: grant.Token,
		TokenType:   "bearer",
		ExpiresIn:   int64(time.Until(grant.ExpiresAt).Seconds()),
		User:        toUserView(grant.User),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, _ := CurrentUser(r.Context())
	if err := h.sessions.Logout(r.Context(), u.ID); err != nil {
		h.log.Error("auth.logout.fail", "err", err, "user_id", u.ID)
		writeError(w, http.StatusInternalServerError, "internal", "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req forgotPasswordRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.Username == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and new_password are required")
		return
	}

	if err := h.sessions.ResetPassword(r.Context(), req.Username, req.NewPassword); err != nil {
		switch {
		case identity.IsNotFound(err):
			writeError(w, http.StatusNotFound, "not_found", "unknown username")
		default:
			h.writeValidationOrInternal(w, "auth.forgot_password", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated, please log in again"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	u, _ := CurrentUser(r.Context())
	writeJSON(w, http.StatusOK, toUserView(u))
}

// writeValidationOrInternal maps password policy failures to 400 and
// everything else to 500.
func (h *Handler) writeValidationOrInternal(w http.ResponseWriter, op string, err error) {
	if msg, ok := passwordPolicyMessage(err); ok {
		writeError(w, http.StatusBadRequest, "invalid_password", msg)
		return
	}
	h.log.Error(op+".fail", "err", err)
	writeError(w, http.StatusInternalServerError, "internal", "request failed")
}
