package api

import (
	"encoding/json"
	"net/http"

	"github.com/sqoia-dev/panel.sh/internal/auth"
)

// loginRequest is the accepted body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin verifies credentials against the active auth backend and
// issues a session cookie.
//
// With the open-access backend there is nothing to verify and no session is
// needed; the endpoint still succeeds so UIs can use one login flow.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	backend, err := auth.Active(s.settings, s.sessions)
	if err != nil {
		s.logger.Error("auth backend lookup failed", "error", err)
		writeInternalError(w, "authentication backend misconfigured")
		return
	}

	if backend.Name() == auth.BackendKeyNone {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Authentication is disabled.",
		})
		return
	}

	basic, ok := backend.(*auth.BasicAuth)
	if !ok || !basic.Login(req.Username, req.Password) {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	token, err := s.sessions.Issue(req.Username)
	if err != nil {
		s.logger.Error("issuing session token failed", "error", err)
		writeInternalError(w, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.TLS.Enabled,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"token": token,
	})
}
