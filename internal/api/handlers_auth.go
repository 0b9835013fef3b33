package api

import (
	"errors"
	"net/http"

	"github.com/cchalm/codebot/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	Detail        string `json:"detail,omitempty"`
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	ID            int64  `json:"id,omitempty"`
}

// handleCSRF issues the CSRF cookie that unsafe requests must echo in a header
func (s *Server) handleCSRF(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.CSRFCookie); err != nil || c.Value == "" {
		http.SetCookie(w, auth.NewCSRFCookie())
	}
	WriteJSON(w, map[string]string{"detail": "CSRF cookie set"}, http.StatusOK)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}

	user, session, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		BadRequest(w, "Invalid credentials")
		return
	}
	if err != nil {
		WriteErr(w, err)
		return
	}

	http.SetCookie(w, auth.SessionCookieFor(session))
	WriteJSON(w, userResponse{
		Detail:        "Login successful",
		Authenticated: true,
		Username:      user.Username,
		ID:            user.ID,
	}, http.StatusOK)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r); err != nil {
		WriteErr(w, err)
		return
	}
	http.SetCookie(w, auth.ExpiredSessionCookie())
	WriteJSON(w, map[string]string{"detail": "Logged out"}, http.StatusOK)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.UserForRequest(r)
	if errors.Is(err, auth.ErrUnauthorized) || errors.Is(err, auth.ErrSessionExpired) {
		WriteJSON(w, userResponse{Authenticated: false}, http.StatusUnauthorized)
		return
	}
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, userResponse{Authenticated: true, Username: user.Username, ID: user.ID}, http.StatusOK)
}
