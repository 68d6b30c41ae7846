// Package auth issues and verifies the bearer session tokens used to
// authenticate API requests.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken indicates the token failed parsing or signature checks.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrTokenExpired indicates the token's validity window has passed.
	ErrTokenExpired = errors.New("session token expired")
	// ErrTokenRevoked indicates the token was logged out before expiry.
	ErrTokenRevoked = errors.New("session token revoked")
)

// RevocationStore tracks token ids rejected before their natural expiry.
// Implementations must be safe for concurrent use.
type RevocationStore interface {
	Revoke(jti string, expiresAt time.Time)
	IsRevoked(jti string) bool
}

// Session describes a verified bearer token.
type Session struct {
	Subject   string
	TokenID   string
	ExpiresAt time.Time
}

// Manager issues HS256-signed bearer tokens and verifies them statelessly,
// consulting the revocation store for logged-out token ids.
type Manager struct {
	signKey []byte
	ttl     time.Duration
	revoked RevocationStore

	// NowFunc allows tests to pin the clock. Defaults to time.Now.
	NowFunc func() time.Time
}

// NewManager constructs a Manager signing with signKey and issuing tokens
// valid for ttl.
func NewManager(signKey []byte, ttl time.Duration, revoked RevocationStore) *Manager {
	if len(signKey) == 0 {
		panic("auth: signing key must not be empty")
	}
	if revoked == nil {
		panic("auth: revocation store must not be nil")
	}
	return &Manager{signKey: signKey, ttl: ttl, revoked: revoked}
}

// Issue creates a signed bearer token whose subject is the provided user id.
func (m *Manager) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("auth: user id must be provided")
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses the token, checks its signature and expiry, and rejects
// revoked token ids. On success it returns the session details.
func (m *Manager) Verify(token string) (Session, error) {
	claims, err := m.parse(token)
	if err != nil {
		return Session{}, err
	}

	if claims.ID != "" && m.revoked.IsRevoked(claims.ID) {
		return Session{}, ErrTokenRevoked
	}

	return Session{
		Subject:   claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke marks the token's id as rejected until the token would have expired
// naturally. Revoking an already-invalid token returns the parse error.
func (m *Manager) Revoke(token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return err
	}
	if claims.ID == "" {
		return ErrInvalidToken
	}
	m.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	return nil
}

func (m *Manager) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.signKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) now() time.Time {
	if m.NowFunc != nil {
		return m.NowFunc()
	}
	return time.Now().UTC()
}
