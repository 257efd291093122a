package auth

import (
	"net/http"

	"github.com/sqoia-dev/panel.sh/internal/settings"
)

// Backend keys as stored in the auth_backend settings key.
const (
	// BackendKeyNone disables authentication entirely.
	BackendKeyNone = ""

	// BackendKeyBasic enables single-credential HTTP Basic authentication.
	BackendKeyBasic = "auth_basic"
)

// Backend authenticates incoming API requests against the device credential.
//
// A backend is selected by the auth_backend settings key. Backends carry no
// per-request state; the same instance serves all requests.
type Backend interface {
	// Name returns the backend's settings key.
	Name() string

	// IsAuthenticated reports whether the request carries valid credentials.
	IsAuthenticated(r *http.Request) bool

	// CheckPassword verifies a plaintext password against the stored credential.
	CheckPassword(password string) bool

	// UpdateCredentials changes the stored username/password, enforcing the
	// credential update rules (see BasicAuth.UpdateCredentials).
	UpdateCredentials(currentPassword, username, password, passwordConfirm string) error
}

// Backends returns all available backends keyed by their settings key.
//
// Parameters:
//   - store: Settings store holding the credential and backend selection
//   - sessions: Session manager for cookie-based authentication
func Backends(store *settings.Store, sessions *SessionManager) map[string]Backend {
	return map[string]Backend{
		BackendKeyNone:  &NoAuth{},
		BackendKeyBasic: NewBasicAuth(store, sessions),
	}
}

// Active returns the backend currently selected in settings.
//
// Returns:
//   - Backend: The selected backend
//   - error: ErrUnknownBackend if the settings value names no known backend
func Active(store *settings.Store, sessions *SessionManager) (Backend, error) {
	key := store.Get().AuthBackend
	backend, ok := Backends(store, sessions)[key]
	if !ok {
		return nil, ErrUnknownBackend
	}
	return backend, nil
}

// NoAuth is the open-access backend: every request is authenticated.
// This is the factory default for devices on trusted networks.
type NoAuth struct{}

// Name returns the settings key for the open-access backend.
func (NoAuth) Name() string { return BackendKeyNone }

// IsAuthenticated always reports true.
func (NoAuth) IsAuthenticated(*http.Request) bool { return true }

// CheckPassword always reports true; there is no credential to check.
func (NoAuth) CheckPassword(string) bool { return true }

// UpdateCredentials is a no-op for the open-access backend.
func (NoAuth) UpdateCredentials(_, _, _, _ string) error { return nil }

// BasicAuth authenticates requests with a single device credential.
//
// Requests are accepted when they carry either:
//   - An Authorization: Basic header matching the stored username and
//     password digest, or
//   - A valid session cookie issued by POST /api/v2/auth/login.
type BasicAuth struct {
	store    *settings.Store
	sessions *SessionManager
}

// NewBasicAuth creates a BasicAuth backend over the given settings store.
func NewBasicAuth(store *settings.Store, sessions *SessionManager) *BasicAuth {
	return &BasicAuth{
		store:    store,
		sessions: sessions,
	}
}

// Name returns the settings key for the basic-auth backend.
func (b *BasicAuth) Name() string { return BackendKeyBasic }

// IsAuthenticated reports whether the request carries a valid Basic header
// or a valid session cookie.
func (b *BasicAuth) IsAuthenticated(r *http.Request) bool {
	if username, password, ok := r.BasicAuth(); ok {
		current := b.store.Get()
		if username == current.User && CheckPasswordHash(password, current.Password) {
			return true
		}
	}

	if b.sessions != nil {
		if _, err := b.sessions.FromRequest(r); err == nil {
			return true
		}
	}

	return false
}

// CheckPassword verifies a plaintext password against the stored digest.
// An empty stored digest never matches.
func (b *BasicAuth) CheckPassword(password string) bool {
	hash := b.store.Get().Password
	if hash == "" {
		return false
	}
	return CheckPasswordHash(password, hash)
}

// Login verifies a username/password pair for session issuance.
func (b *BasicAuth) Login(username, password string) bool {
	current := b.store.Get()
	return username == current.User && b.CheckPassword(password)
}

// UpdateCredentials changes the stored username and password.
//
// Rules:
//  1. If a password is already set, currentPassword must match it.
//  2. password and passwordConfirm must be equal.
//  3. Setting a non-empty password requires a non-empty username.
//
// An empty password with matching confirmation clears the credential.
//
// Returns:
//   - error: One of the credential errors above, or a settings write error
func (b *BasicAuth) UpdateCredentials(currentPassword, username, password, passwordConfirm string) error {
	current := b.store.Get()

	if current.Password != "" {
		if currentPassword == "" {
			return ErrCurrentPasswordRequired
		}
		if !CheckPasswordHash(currentPassword, current.Password) {
			return ErrCurrentPasswordIncorrect
		}
	}

	if password != passwordConfirm {
		return ErrPasswordMismatch
	}

	if password != "" && username == "" {
		return ErrUsernameRequired
	}

	return b.store.Update(func(s *settings.Settings) {
		s.User = username
		if password != "" {
			s.Password = HashPassword(password)
		} else {
			s.Password = ""
		}
	})
}
