package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// DefaultSessionTTL is how long a login lasts
const DefaultSessionTTL = 14 * 24 * time.Hour

// Session ties a browser cookie to a user
type Session struct {
	Token     string    `db:"token"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// SessionStore persists sessions
type SessionStore struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

func NewSessionStore(db *sqlx.DB, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{db: db, ttl: ttl, now: time.Now}
}

// Create starts a session for userID
func (s *SessionStore) Create(ctx context.Context, userID int64) (*Session, error) {
	now := s.now().UTC()
	session := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (:token, :user_id, :created_at, :expires_at)`,
		session,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Lookup returns the live session for token. Expired sessions are removed
func (s *SessionStore) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	var session Session
	err := s.db.GetContext(ctx, &session, `SELECT * FROM sessions WHERE token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if !s.now().Before(session.ExpiresAt) {
		_ = s.Delete(ctx, token)
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// Delete ends the session. Deleting an unknown session is not an error
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
