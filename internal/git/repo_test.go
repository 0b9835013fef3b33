package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "src", "pkg")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	file := filepath.Join(nested, "app.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0o644))

	found, err := FindRoot(file)
	require.NoError(t, err)
	require.Equal(t, root, found)

	found, err = FindRoot(nested)
	require.NoError(t, err)
	require.Equal(t, root, found)
}

func TestFindRoot_NotRepository(t *testing.T) {
	_, err := FindRoot(t.TempDir())
	require.ErrorIs(t, err, ErrNotRepository)
}

func TestInitCommitFlow(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := Init(ctx, dir, 0)
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(dir, ".git"))

	// Init on an existing repository is a no-op
	_, err = Init(ctx, dir, 0)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('hi')\n"), 0o644))
	require.NoError(t, repo.AddAll(ctx))
	require.NoError(t, repo.EnsureMainBranch(ctx))

	committed, err := repo.Commit(ctx, "CodeBot fix: greet in app.py")
	require.NoError(t, err)
	require.True(t, committed)

	sha, err := repo.HeadCommit(ctx)
	require.NoError(t, err)
	require.Len(t, sha, 40)

	// Nothing new to commit
	require.NoError(t, repo.AddAll(ctx))
	committed, err = repo.Commit(ctx, "empty")
	require.NoError(t, err)
	require.False(t, committed)

	// main now exists, so EnsureMainBranch checks it out
	require.NoError(t, repo.EnsureMainBranch(ctx))
}

func TestRemotes(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	repo, err := Init(ctx, t.TempDir(), 0)
	require.NoError(t, err)

	url, err := repo.RemoteURL(ctx, DefaultRemote)
	require.NoError(t, err)
	require.Empty(t, url)

	require.NoError(t, repo.SetRemote(ctx, DefaultRemote, "https://example.com/a.git"))
	require.NoError(t, repo.SetRemote(ctx, DefaultRemote, "https://example.com/b.git"))

	url, err = repo.RemoteURL(ctx, DefaultRemote)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/b.git", url)
}

func TestRelPath(t *testing.T) {
	root := t.TempDir()
	repo := newRepo(root, 0)
	rel, err := repo.RelPath(filepath.Join(root, "src", "app.py"))
	require.NoError(t, err)
	require.Equal(t, "src/app.py", rel)
}

func TestRedact(t *testing.T) {
	require.Equal(t,
		"fatal: unable to access 'https://***@github.com/me/repo.git/'",
		Redact("fatal: unable to access 'https://ghp_secret@github.com/me/repo.git/'"),
	)
	require.Equal(t, "https://github.com/me/repo.git", Redact("https://github.com/me/repo.git"))
}

func TestCommandErrorIsRedacted(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	repo, err := Init(ctx, t.TempDir(), 0)
	require.NoError(t, err)

	err = repo.Push(ctx, "https://token123@127.0.0.1:1/none.git", DefaultBranch)
	require.Error(t, err)
	require.NotContains(t, err.Error(), "token123")

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
}
