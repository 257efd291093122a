package auth

import "errors"

// Domain-specific errors for authentication operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownBackend is returned when a settings value names a backend
	// that does not exist.
	ErrUnknownBackend = errors.New("auth: unknown backend")

	// ErrInvalidCredentials is returned when a login attempt fails.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrCurrentPasswordRequired is returned when changing credentials
	// without supplying the current password.
	ErrCurrentPasswordRequired = errors.New("auth: current password is required")

	// ErrCurrentPasswordIncorrect is returned when the supplied current
	// password does not match the stored one.
	ErrCurrentPasswordIncorrect = errors.New("auth: current password is incorrect")

	// ErrPasswordMismatch is returned when the new password and its
	// confirmation differ.
	ErrPasswordMismatch = errors.New("auth: passwords do not match")

	// ErrUsernameRequired is returned when setting a password without a username.
	ErrUsernameRequired = errors.New("auth: username is required")

	// ErrTokenInvalid is returned when a session token fails validation.
	ErrTokenInvalid = errors.New("auth: invalid session token")
)
