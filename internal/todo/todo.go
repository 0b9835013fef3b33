// Package todo stores the per-user todo items served by the API.
package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound      = errors.New("todo not found")
	ErrTitleRequired = errors.New("title is required")
	ErrTitleTooLong  = errors.New("title is too long")
)

const maxTitleLength = 200

// Todo is a task belonging to one user
type Todo struct {
	ID          int64     `db:"id" json:"id"`
	OwnerID     int64     `db:"owner_id" json:"-"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Completed   bool      `db:"completed" json:"completed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Patch holds the fields of an update. Nil fields are left unchanged
type Patch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// Store persists todos. Every operation is scoped to an owner; other users' todos behave as if they don't exist
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// List returns the owner's todos, newest first
func (s *Store) List(ctx context.Context, ownerID int64) ([]Todo, error) {
	todos := []Todo{}
	err := s.db.SelectContext(ctx, &todos,
		`SELECT * FROM todos WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

// Create adds a todo for the owner
func (s *Store) Create(ctx context.Context, ownerID int64, title, description string, completed bool) (*Todo, error) {
	title, err := validateTitle(title)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	t := &Todo{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Completed:   completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO todos (owner_id, title, description, completed, created_at, updated_at)
		 VALUES (:owner_id, :title, :description, :completed, :created_at, :updated_at)`, t)
	if err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read todo id: %w", err)
	}
	return t, nil
}

// Get returns one of the owner's todos
func (s *Store) Get(ctx context.Context, ownerID, id int64) (*Todo, error) {
	var t Todo
	err := s.db.GetContext(ctx, &t, `SELECT * FROM todos WHERE id = ? AND owner_id = ?`, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return &t, nil
}

// Update applies patch to one of the owner's todos and returns the result
func (s *Store) Update(ctx context.Context, ownerID, id int64, patch Patch) (*Todo, error) {
	t, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		t.Title = title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	t.UpdatedAt = s.now().UTC()

	_, err = s.db.NamedExecContext(ctx,
		`UPDATE todos SET title = :title, description = :description, completed = :completed, updated_at = :updated_at
		 WHERE id = :id AND owner_id = :owner_id`, t)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	return t, nil
}

// Delete removes one of the owner's todos
func (s *Store) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if len([]rune(title)) > maxTitleLength {
		return "", fmt.Errorf("%w: at most %d characters", ErrTitleTooLong, maxTitleLength)
	}
	return title, nil
}
