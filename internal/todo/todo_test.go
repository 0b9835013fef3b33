package todo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/codebot/internal/storage"
)

func setup(t *testing.T) (*Store, int64, int64) {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewStore(db), insertUser(t, db, "alice"), insertUser(t, db, "bob")
}

func insertUser(t *testing.T, db *sqlx.DB, name string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO users (username, password_hash, created_at) VALUES (?, 'x', ?)`, name, time.Now().UTC())
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store, alice, _ := setup(t)

	created, err := store.Create(ctx, alice, "  Fix login  ", "it 500s", false)
	require.NoError(t, err)
	require.Equal(t, "Fix login", created.Title)
	require.NotZero(t, created.ID)

	got, err := store.Get(ctx, alice, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Title, got.Title)
	require.Equal(t, "it 500s", got.Description)
	require.False(t, got.Completed)
	require.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)

	_, err = store.Create(ctx, alice, "   ", "", false)
	require.ErrorIs(t, err, ErrTitleRequired)

	_, err = store.Create(ctx, alice, strings.Repeat("é", maxTitleLength), "", false)
	require.NoError(t, err, "length is counted in characters")
	_, err = store.Create(ctx, alice, strings.Repeat("x", maxTitleLength+1), "", false)
	require.ErrorIs(t, err, ErrTitleTooLong)
}

func TestListIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store, alice, bob := setup(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	store.now = func() time.Time { step++; return base.Add(time.Duration(step) * time.Minute) }

	_, err := store.Create(ctx, alice, "first", "", false)
	require.NoError(t, err)
	_, err = store.Create(ctx, bob, "bob's", "", false)
	require.NoError(t, err)
	_, err = store.Create(ctx, alice, "second", "", true)
	require.NoError(t, err)

	todos, err := store.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, todos, 2)
	require.Equal(t, "second", todos[0].Title)
	require.Equal(t, "first", todos[1].Title)

	none, err := store.List(ctx, 9999)
	require.NoError(t, err)
	require.Empty(t, none)
	require.NotNil(t, none)
}

func TestOtherUsersTodosAreNotFound(t *testing.T) {
	ctx := context.Background()
	store, alice, bob := setup(t)

	todo, err := store.Create(ctx, alice, "private", "", false)
	require.NoError(t, err)

	_, err = store.Get(ctx, bob, todo.ID)
	require.ErrorIs(t, err, ErrNotFound)

	title := "hijacked"
	_, err = store.Update(ctx, bob, todo.ID, Patch{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, store.Delete(ctx, bob, todo.ID), ErrNotFound)

	got, err := store.Get(ctx, alice, todo.ID)
	require.NoError(t, err)
	require.Equal(t, "private", got.Title)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store, alice, _ := setup(t)

	todo, err := store.Create(ctx, alice, "write tests", "", false)
	require.NoError(t, err)

	done := true
	updated, err := store.Update(ctx, alice, todo.ID, Patch{Completed: &done})
	require.NoError(t, err)
	require.True(t, updated.Completed)
	require.Equal(t, "write tests", updated.Title)
	require.False(t, updated.UpdatedAt.Before(todo.UpdatedAt))

	empty := ""
	_, err = store.Update(ctx, alice, todo.ID, Patch{Title: &empty})
	require.ErrorIs(t, err, ErrTitleRequired)

	long := strings.Repeat("x", maxTitleLength+1)
	_, err = store.Update(ctx, alice, todo.ID, Patch{Title: &long})
	require.ErrorIs(t, err, ErrTitleTooLong)

	require.NoError(t, store.Delete(ctx, alice, todo.ID))
	_, err = store.Get(ctx, alice, todo.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
