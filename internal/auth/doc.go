// Package auth provides request authentication for the panel.sh API.
//
// Authentication is pluggable through the Backend interface. Two backends
// exist: NoAuth (open access, the factory default) and BasicAuth (a single
// device credential checked against HTTP Basic headers or a session cookie).
// The active backend is selected by the auth_backend device setting, so an
// operator can switch backends at runtime through the settings endpoint.
//
// Passwords are stored as hex-encoded SHA-256 digests in the device settings
// file. Session tokens are HS256-signed JWTs carried in a cookie, issued by
// POST /api/v2/auth/login.
//
// The API layer applies authentication as router middleware; handlers never
// check credentials themselves.
package auth
