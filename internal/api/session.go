package api

import (
	"encoding/json"
	"net/http"
)

// loginRequest is the request body for POST /login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /login. Token is null when
// the credentials are rejected.
type loginResponse struct {
	Token *string `json:"token"`
}

// healthcheckResponse is the response body for GET /healthcheck.
type healthcheckResponse struct {
	IsLoggedIn bool `json:"isLoggedIn"`
}

// handleLogin checks the credentials and returns a session token. A
// successful login supersedes the previous session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.loginLimiter != nil && !s.loginLimiter.Allow() {
		writeTooManyRequests(w, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	token, err := s.sessions.LogIn(req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, loginResponse{})
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: &token})
}

// handleHealthcheck reports whether the Authorization header carries the
// current session token. It always answers 200.
func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthcheckResponse{
		IsLoggedIn: s.sessions.IsLoggedIn(tokenFromRequest(r)),
	})
}
