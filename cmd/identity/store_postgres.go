package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"freight/cmd/identity/ids"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid identifier injection.
// - Session writes touch exactly one row, so both session fields always
//   change together (the both-or-none invariant holds per statement).
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default "freight").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "freight",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `id, username, password_hash, role,
	active_session_id, active_session_expires_at,
	created_at, updated_at, deleted_at`

// Create inserts a new user.
func (s *PostgresStore) Create(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.Create"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	username := strings.TrimSpace(in.Username)
	if NormalizeUsername(username) == "" || in.PasswordHash == "" {
		return User{}, ErrInvalidInput
	}

	role := in.Role
	if !role.Valid() {
		role = DefaultRole
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")
	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+users+` (
		     id, username, username_norm, password_hash, role, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		id, username, NormalizeUsername(username), in.PasswordHash, string(role), now,
	)
	if err != nil {
		if pgIsUniqueViolation(err) {
			return User{}, ConflictError{Op: op, Field: "username"}
		}
		return User{}, err
	}

	return User{
		ID:           id,
		Username:     username,
		PasswordHash: in.PasswordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// GetByID fetches a user by primary key, excluding soft-deleted rows.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	users := pgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+users+` WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanUser(row)
}

// GetByUsername fetches a user by normalized username.
func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (User, error) {
	users := pgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+users+` WHERE username_norm = $1 AND deleted_at IS NULL`,
		NormalizeUsername(username))
	return scanUser(row)
}

// SetSession writes both session fields in one update.
func (s *PostgresStore) SetSession(ctx context.Context, userID, sessionID string, expiresAt time.Time) error {
	users := pgIdent(s.schema, "users")
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+users+`
		    SET active_session_id = $1,
		        active_session_expires_at = $2,
		        updated_at = now()
		  WHERE id = $3 AND deleted_at IS NULL`,
		sessionID, expiresAt, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// ClearSession nils both session fields.
func (s *PostgresStore) ClearSession(ctx context.Context, userID string) error {
	users := pgIdent(s.schema, "users")
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+users+`
		    SET active_session_id = NULL,
		        active_session_expires_at = NULL,
		        updated_at = now()
		  WHERE id = $1 AND deleted_at IS NULL`,
		userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword swaps the credential and clears the session in one row write.
func (s *PostgresStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if passwordHash == "" {
		return ErrInvalidInput
	}
	users := pgIdent(s.schema, "users")
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+users+`
		    SET password_hash = $1,
		        active_session_id = NULL,
		        active_session_expires_at = NULL,
		        updated_at = now()
		  WHERE id = $2 AND deleted_at IS NULL`,
		passwordHash, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u    User
		role string
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &role,
		&u.ActiveSessionID, &u.ActiveSessionExpiresAt,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgIsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}
