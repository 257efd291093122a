package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookieName is the cookie used to carry the session token.
const SessionCookieName = "panelsh_session"

// SessionClaims extends JWT standard claims with the authenticated username.
type SessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// SessionManager issues and validates signed session tokens.
//
// Sessions let browser-based management UIs log in once instead of sending
// Basic credentials with every request. Tokens are HS256-signed with the
// device JWT secret and validated by signature only.
type SessionManager struct {
	secret     string
	ttlMinutes int
}

// NewSessionManager creates a SessionManager.
//
// Parameters:
//   - secret: HMAC signing secret (from config, min 32 chars)
//   - ttlMinutes: Session lifetime in minutes (defaults to 720 if <= 0)
func NewSessionManager(secret string, ttlMinutes int) *SessionManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 720 //nolint:mnd // default 12-hour session TTL
	}
	return &SessionManager{
		secret:     secret,
		ttlMinutes: ttlMinutes,
	}
}

// Issue creates a signed session token for a username.
func (m *SessionManager) Issue(username string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(m.ttlMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.secret))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Validate parses and validates a session token, returning its claims.
// It checks the signature, expiry, and required fields.
func (m *SessionManager) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(m.secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Username == "" {
		return nil, fmt.Errorf("%w: missing username", ErrTokenInvalid)
	}

	return claims, nil
}

// FromRequest extracts and validates a session token from the request cookie.
//
// Returns:
//   - *SessionClaims: The validated claims
//   - error: ErrTokenInvalid if the cookie is absent or the token fails validation
func (m *SessionManager) FromRequest(r *http.Request) (*SessionClaims, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return m.Validate(cookie.Value)
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return time.Duration(m.ttlMinutes) * time.Minute
}
