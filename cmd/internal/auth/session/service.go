package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"freight/cmd/identity"
	"freight/cmd/identity/ids"
	"freight/cmd/security/password"
)

// Grant is the outcome of a successful login or takeover.
type Grant struct {
	User      identity.User
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// Service owns the credential and session lifecycle: registration, login
// with single-session enforcement, logout, password change, and per-request
// authentication of bearer tokens.
type Service struct {
	users     identity.Store
	tokens    AccessTokenManager
	registry  *Registry
	passwords password.Config
	tokenTTL  time.Duration
	logger    *slog.Logger

	// dummyHash keeps Login's bcrypt cost constant for unknown usernames.
	dummyHash string

	now func() time.Time
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(users identity.Store, tokens AccessTokenManager, cfg Config, pw password.Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if users == nil || tokens == nil {
		return nil, fmt.Errorf("session service: %w: nil store or token manager", ErrConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	dummy, err := pw.Hash("freight-dummy-credential")
	if err != nil {
		return nil, fmt.Errorf("session service: %w", err)
	}
	s := &Service{
		users:     users,
		tokens:    tokens,
		registry:  NewRegistry(users),
		passwords: pw,
		tokenTTL:  cfg.TokenTTL,
		logger:    logger,
		dummyHash: dummy,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a new account. Usernames are matched case-insensitively;
// a taken name surfaces as identity.ErrConflict.
func (s *Service) Register(ctx context.Context, username, plaintext string, role identity.Role) (identity.User, error) {
	username = identity.NormalizeUsername(username)
	if username == "" {
		return identity.User{}, fmt.Errorf("register: %w: empty username", identity.ErrInvalidInput)
	}
	if !role.Valid() {
		return identity.User{}, fmt.Errorf("register: %w: role %q", identity.ErrInvalidInput, role)
	}

	hash, err := s.passwords.Hash(plaintext)
	if err != nil {
		return identity.User{}, fmt.Errorf("register: %w", err)
	}

	u, err := s.users.Create(ctx, identity.CreateUserInput{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Now:          s.now(),
	})
	if err != nil {
		return identity.User{}, fmt.Errorf("register: %w", err)
	}

	s.logger.Info("user registered", "user_id", u.ID, "role", string(u.Role))
	return u, nil
}

// Login verifies credentials and establishes the single active session.
//
// If the user already holds a live session and force is false, Login fails
// with a ConflictError carrying the blocking session's expiry. With force
// set, the existing session is cleared and replaced; any token bound to it
// stops authenticating immediately.
func (s *Service) Login(ctx context.Context, username, plaintext string, force bool) (Grant, error) {
	now := s.now()

	u, err := s.users.GetByUsername(ctx, identity.NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			// Burn the same bcrypt cost as a real lookup.
			_, _ = s.passwords.Verify(s.dummyHash, plaintext)
			return Grant{}, ErrInvalidCredentials
		}
		return Grant{}, fmt.Errorf("login: %w", err)
	}

	ok, err := s.passwords.Verify(u.PasswordHash, plaintext)
	if err != nil || !ok {
		return Grant{}, ErrInvalidCredentials
	}

	u, _, err = s.registry.ReapIfExpired(ctx, u, now)
	if err != nil {
		return Grant{}, fmt.Errorf("login: %w", err)
	}

	if s.registry.IsActive(u, now) {
		if !force {
			return Grant{}, &ConflictError{ExpiresAt: u.ActiveSessionExpiresAt.UTC()}
		}
		if err := s.registry.Clear(ctx, u); err != nil {
			return Grant{}, fmt.Errorf("login takeover: %w", err)
		}
		u.ActiveSessionID = nil
		u.ActiveSessionExpiresAt = nil
		s.logger.Info("session takeover", "user_id", u.ID)
	}

	sessionID, err := ids.NewULID(now)
	if err != nil {
		return Grant{}, fmt.Errorf("login: session id: %w", err)
	}
	token, exp, err := s.tokens.Issue(u.ID, sessionID, now)
	if err != nil {
		return Grant{}, fmt.Errorf("login: issue token: %w", err)
	}
	if err := s.registry.Establish(ctx, u, sessionID, exp, now); err != nil {
		return Grant{}, fmt.Errorf("login: %w", err)
	}

	s.logger.Info("login", "user_id", u.ID, "session_id", sessionID, "expires_at", exp)
	return Grant{User: u, Token: token, SessionID: sessionID, ExpiresAt: exp}, nil
}

// Logout clears the caller's session. Logging out with no live session is
// not an error.
func (s *Service) Logout(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("logout: %w", err)
	}
	if err := s.registry.Clear(ctx, u); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Info("logout", "user_id", userID)
	return nil
}

// Authenticate resolves a bearer token to its user. The token must verify
// structurally, the user must exist, and the token's session id must match
// the user's live session. Any failure collapses to ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, token string) (identity.User, error) {
	now := s.now()

	claims, err := s.tokens.Verify(token, now)
	if err != nil {
		return identity.User{}, ErrUnauthorized
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return identity.User{}, ErrUnauthorized
	}

	u, _, err = s.registry.ReapIfExpired(ctx, u, now)
	if err != nil {
		return identity.User{}, fmt.Errorf("authenticate: %w", err)
	}
	if !s.registry.IsActive(u, now) {
		return identity.User{}, ErrUnauthorized
	}
	if u.ActiveSessionID == nil || *u.ActiveSessionID != claims.SessionID {
		return identity.User{}, ErrUnauthorized
	}
	return u, nil
}

// VerifyStream resolves a token supplied out-of-band by a stream transport
// that cannot carry headers. It is structural-only: the session is checked
// once at connect time and not re-validated for the life of the stream.
func (s *Service) VerifyStream(token string) (string, error) {
	claims, err := s.tokens.Verify(token, s.now())
	if err != nil {
		return "", ErrUnauthorized
	}
	return claims.UserID, nil
}

// ResetPassword replaces the user's credential and clears any active
// session, forcing a fresh login. The caller is trusted to have vetted the
// request; unknown usernames surface as identity.ErrNotFound.
func (s *Service) ResetPassword(ctx context.Context, username, next string) error {
	u, err := s.users.GetByUsername(ctx, identity.NormalizeUsername(username))
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	// UpdatePassword drops the session in the same write, so a token issued
	// under the old credential stops authenticating immediately.
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.logger.Info("password reset", "user_id", u.ID)
	return nil
}
