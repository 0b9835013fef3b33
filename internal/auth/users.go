// Package auth provides user accounts, cookie sessions and CSRF protection for the HTTP API.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// User is an account that can log in
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserStore persists users
type UserStore struct {
	db         *sqlx.DB
	bcryptCost int
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db, bcryptCost: bcrypt.DefaultCost}
}

// Create adds a user with a bcrypt hash of password
func (s *UserStore) Create(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (:username, :password_hash, :created_at)`,
		user,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("%s: %w", username, ErrUserExists)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}
	return user, nil
}

// Authenticate returns the user when password matches. Unknown users and wrong passwords are indistinguishable
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE username = ?`, strings.TrimSpace(username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Get returns the user with the given id
func (s *UserStore) Get(ctx context.Context, id int64) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}
