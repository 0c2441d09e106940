package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the minimal identity envelope carried by an access token.
type AccessClaims struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Issuer    string
}

// AccessTokenManager issues and verifies signed, time-bound access tokens.
//
// Verify is structural only: it proves the token was minted by this process
// and has not expired. Whether the named session is still live is the
// Service's job, not the token's.
type AccessTokenManager interface {
	Issue(userID, sessionID string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (AccessClaims, error)
}

type jwtClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type jwtHS256Manager struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	key       []byte
}

// NewJWTManager builds an AccessTokenManager signing HS256 JWTs with claims
// {sub, sid, exp, iat, iss}.
func NewJWTManager(cfg Config) (AccessTokenManager, error) {
	if cfg.SigningKey == "" || cfg.TokenTTL <= 0 {
		return nil, ErrConfig
	}
	return &jwtHS256Manager{
		issuer:    cfg.Issuer,
		ttl:       cfg.TokenTTL,
		clockSkew: cfg.ClockSkew,
		key:       []byte(cfg.SigningKey),
	}, nil
}

func (m *jwtHS256Manager) Issue(userID, sessionID string, now time.Time) (string, time.Time, error) {
	if userID == "" || sessionID == "" {
		return "", time.Time{}, fmt.Errorf("issue token: empty subject or session id")
	}
	exp := now.Add(m.ttl)

	claims := jwtClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *jwtHS256Manager) Verify(token string, now time.Time) (AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.key, nil
		},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.SessionID == "" || claims.ExpiresAt == nil {
		return AccessClaims{}, ErrInvalidToken
	}

	out := AccessClaims{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt.Time,
		Issuer:    claims.Issuer,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
