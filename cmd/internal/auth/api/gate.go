package authapi

import (
	"context"
	"net/http"
	"strings"

	"freight/cmd/identity"
)

type contextKey struct{ name string }

var userContextKey = &contextKey{"auth.user"}

// CurrentUser returns the authenticated user attached by RequireAuth.
func CurrentUser(ctx context.Context) (identity.User, bool) {
	u, ok := ctx.Value(userContextKey).(identity.User)
	return u, ok
}

// WithUser returns ctx with u attached as the authenticated caller.
// Exposed for handlers reached outside RequireAuth (stream endpoints that
// authenticate out-of-band).
func WithUser(ctx context.Context, u identity.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// RequireAuth wraps next so it only runs for requests carrying a bearer
// token that maps to a live session. On any failure the request is refused
// with 401; handlers behind the gate can rely on CurrentUser succeeding.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		u, err := h.sessions.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or revoked token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireRole layers a role check on top of RequireAuth.
func (h *Handler) RequireRole(role identity.Role, next http.Handler) http.Handler {
	return h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := CurrentUser(r.Context())
		if u.Role != role {
			writeError(w, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", false
	}
	const prefix = "Bearer "
	if len(raw) <= len(prefix) || !strings.EqualFold(raw[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(raw[len(prefix):])
	return token, token != ""
}
