package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SessionCookie = "sessionid"
	CSRFCookie    = "csrftoken"
	CSRFHeader    = "X-CSRFToken"
)

type contextKey string

const userKey contextKey = "user"

// Authenticator resolves the user behind a request's session cookie
type Authenticator struct {
	users    *UserStore
	sessions *SessionStore
}

func NewAuthenticator(users *UserStore, sessions *SessionStore) *Authenticator {
	return &Authenticator{users: users, sessions: sessions}
}

// Login checks the credentials and starts a session
func (a *Authenticator) Login(ctx context.Context, username, password string) (*User, *Session, error) {
	user, err := a.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, nil, err
	}
	session, err := a.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Logout ends the session carried by r, if any
func (a *Authenticator) Logout(r *http.Request) error {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	return a.sessions.Delete(r.Context(), cookie.Value)
}

// UserForRequest returns the logged-in user of r
func (a *Authenticator) UserForRequest(r *http.Request) (*User, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, ErrUnauthorized
	}
	session, err := a.sessions.Lookup(r.Context(), cookie.Value)
	if err != nil {
		return nil, err
	}
	return a.users.Get(r.Context(), session.UserID)
}

// SessionCookieFor builds the cookie that carries session
func SessionCookieFor(session *Session) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie clears the session cookie in the browser
func ExpiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// NewCSRFCookie issues a fresh CSRF token. The cookie is readable by scripts so clients can echo it in CSRFHeader
func NewCSRFCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CSRFCookie,
		Value:    strings.ReplaceAll(uuid.NewString(), "-", ""),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	}
}

// CheckCSRF enforces the double-submit rule on unsafe methods: the CSRFHeader must equal the CSRFCookie
func CheckCSRF(r *http.Request) error {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return nil
	}
	cookie, err := r.Cookie(CSRFCookie)
	if err != nil || cookie.Value == "" {
		return ErrCSRFMismatch
	}
	header := r.Header.Get(CSRFHeader)
	if subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
		return ErrCSRFMismatch
	}
	return nil
}

// WithUser stores user on ctx
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user stored by WithUser
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userKey).(*User)
	return user, ok && user != nil
}
