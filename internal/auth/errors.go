package auth

import "errors"

var (
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("authentication required")
	ErrSessionExpired     = errors.New("session has expired")
	ErrCSRFMismatch       = errors.New("CSRF token missing or incorrect")
)
