package workspace

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cchalm/codebot/internal/filesystem"
	"github.com/cchalm/codebot/internal/git"
	githubpkg "github.com/cchalm/codebot/internal/github"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return strings.TrimSpace(string(out))
}

func newRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.Init(context.Background(), dir, 0)
	require.NoError(t, err)
	return dir
}

type fakeRepositoryService struct {
	mu      sync.Mutex
	calls   []githubpkg.RepositoryOptions
	created bool
	err     error
}

func (f *fakeRepositoryService) EnsureRepository(ctx context.Context, opts githubpkg.RepositoryOptions) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	return f.created, f.err
}

func TestApply_WithoutRepositoryStillWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.py")
	ws := New(filesystem.NewOSFileSystem(""), nil, Options{}, nil)

	result, err := ws.Apply(context.Background(), path, "print('fixed')\n", "fix greeting")
	require.ErrorIs(t, err, ErrRepositoryNotFound)
	require.True(t, result.Written)
	require.False(t, result.Committed)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "print('fixed')\n", string(b))
}

func TestApply_CommitsOnMain(t *testing.T) {
	requireGit(t)
	dir := newRepo(t)
	path := filepath.Join(dir, "src", "app.py")
	ws := New(filesystem.NewOSFileSystem(""), nil, Options{}, nil)

	result, err := ws.Apply(context.Background(), path, "x = 1\n", "fix the   off-by-one\nerror")
	require.NoError(t, err)
	require.True(t, result.Written)
	require.True(t, result.Committed)
	require.Equal(t, dir, result.RepoRoot)
	require.Equal(t, "CodeBot fix: fix the off-by-one error in src/app.py", result.CommitMessage)
	require.NotEmpty(t, result.Commit)
	require.False(t, result.Pushed)

	require.Equal(t, "main", runGit(t, dir, "rev-parse", "--abbrev-ref", "HEAD"))
	require.Equal(t, result.CommitMessage, runGit(t, dir, "log", "-1", "--format=%s"))

	// Applying identical content again has nothing to commit
	result, err = ws.Apply(context.Background(), path, "x = 1\n", "again")
	require.NoError(t, err)
	require.True(t, result.Written)
	require.False(t, result.Committed)
}

func TestApply_PublishesToRemote(t *testing.T) {
	requireGit(t)
	dir := newRepo(t)
	bare := t.TempDir()
	runGit(t, bare, "init", "--bare")

	repos := &fakeRepositoryService{created: true}
	ws := New(filesystem.NewOSFileSystem(""), repos, Options{
		GitHubToken:    "tok",
		GitHubUsername: "alice",
		RepoName:       "codebot-fixes",
		Private:        true,
		RemoteURL:      func(token, owner, repo string) string { return bare },
	}, nil)

	result, err := ws.Apply(context.Background(), filepath.Join(dir, "main.py"), "print(1)\n", "fix print")
	require.NoError(t, err)
	require.True(t, result.Committed)
	require.True(t, result.Pushed, result.PushError)
	require.True(t, result.RepositoryCreated)
	require.Equal(t, []githubpkg.RepositoryOptions{{Name: "codebot-fixes", Description: "Fixes applied by CodeBot", Private: true}}, repos.calls)

	require.Equal(t, result.Commit, runGit(t, bare, "rev-parse", "main"))
}

func TestApply_PublishFailureIsReported(t *testing.T) {
	requireGit(t)
	dir := newRepo(t)
	repos := &fakeRepositoryService{err: errors.New("bad credentials for https://secret@github.com")}
	ws := New(filesystem.NewOSFileSystem(""), repos, Options{GitHubToken: "secret", GitHubUsername: "alice", RepoName: "r"}, nil)

	result, err := ws.Apply(context.Background(), filepath.Join(dir, "main.py"), "print(1)\n", "fix")
	require.NoError(t, err)
	require.True(t, result.Committed)
	require.False(t, result.Pushed)
	require.NotEmpty(t, result.PushError)
	require.NotContains(t, result.PushError, "secret@")
}

func TestApply_ConcurrentFixesInOneRepository(t *testing.T) {
	requireGit(t)
	dir := newRepo(t)
	ws := New(filesystem.NewOSFileSystem(""), nil, Options{}, nil)

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := filepath.Join(dir, "pkg", string(rune('a'+i))+".py")
			_, errs[i] = ws.Apply(context.Background(), path, "x = 1\n", "fix")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	count := runGit(t, dir, "rev-list", "--count", "HEAD")
	require.NotEqual(t, "0", count)
	require.Empty(t, runGit(t, dir, "status", "--porcelain"))
}

func TestApplyChangelist(t *testing.T) {
	requireGit(t)
	dir := newRepo(t)
	osFS := filesystem.NewOSFileSystem("")
	staged := filesystem.NewMemDiffFileSystem(osFS)
	ctx := context.Background()
	require.NoError(t, staged.Write(ctx, filepath.Join(dir, "a.py"), "a = 1\n"))
	require.NoError(t, staged.Write(ctx, filepath.Join(dir, "b.py"), "b = 2\n"))

	ws := New(osFS, nil, Options{}, nil)
	results, err := ws.ApplyChangelist(ctx, staged.GetChangelist(), "batch fix")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.True(t, results[0].Committed)
	require.True(t, results[1].Committed)
	require.Equal(t, "2", runGit(t, dir, "rev-list", "--count", "HEAD"))
}

func TestCommitMessage(t *testing.T) {
	require.Equal(t, "CodeBot fix: bug fix in app.py", CommitMessage("  ", "app.py"))
	long := strings.Repeat("word ", 40)
	msg := CommitMessage(long, "x.py")
	require.True(t, strings.HasSuffix(msg, "... in x.py"))
	require.LessOrEqual(t, len([]rune(msg)), len("CodeBot fix: ")+maxSubjectLength+len("... in x.py"))
}

func TestKeyedMutex(t *testing.T) {
	km := newKeyedMutex()
	unlockA := km.Lock("a")
	// A different key is not blocked
	unlockB := km.Lock("b")
	unlockB()
	unlockA()
	require.Empty(t, km.locks)
}
