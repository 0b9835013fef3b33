// Package git drives the local git executable for the projects CodeBot edits.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultBranch is the branch fixes are committed to
	DefaultBranch = "main"
	// DefaultRemote is the remote fixes are pushed to
	DefaultRemote = "origin"
	// DefaultTimeout bounds a single git invocation
	DefaultTimeout = 60 * time.Second

	fallbackAuthorName  = "CodeBot"
	fallbackAuthorEmail = "codebot@localhost"
)

var (
	ErrNotRepository = errors.New("not a git repository")
	ErrGitNotFound   = errors.New("git executable not found")
)

// credentialsPattern matches the user-info part of an https URL so tokens never end up in errors or logs
var credentialsPattern = regexp.MustCompile(`(https?://)[^@/\s]+@`)

// Repo is a working copy on the local disk
type Repo struct {
	root    string
	timeout time.Duration
}

// FindRoot walks up from path until it finds a directory containing .git
func FindRoot(path string) (string, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s: %w", path, ErrNotRepository)
		}
		dir = parent
	}
}

// Open returns the repository enclosing path
func Open(path string, timeout time.Duration) (*Repo, error) {
	root, err := FindRoot(path)
	if err != nil {
		return nil, err
	}
	return newRepo(root, timeout), nil
}

// Init creates a repository in dir if one does not exist yet. An existing repository is opened as is
func Init(ctx context.Context, dir string, timeout time.Duration) (*Repo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	repo := newRepo(abs, timeout)
	if _, err := os.Stat(filepath.Join(abs, ".git")); err == nil {
		return repo, nil
	}
	if _, err := repo.run(ctx, "init"); err != nil {
		return nil, err
	}
	return repo, nil
}

func newRepo(root string, timeout time.Duration) *Repo {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Repo{root: root, timeout: timeout}
}

// Root returns the working tree root
func (r *Repo) Root() string {
	return r.root
}

// RelPath returns path relative to the working tree root, using forward slashes
func (r *Repo) RelPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// AddAll stages every change in the working tree
func (r *Repo) AddAll(ctx context.Context) error {
	_, err := r.run(ctx, "add", "--all")
	return err
}

// HasStagedChanges reports whether the index differs from HEAD
func (r *Repo) HasStagedChanges(ctx context.Context) (bool, error) {
	_, err := r.run(ctx, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, err
}

// EnsureMainBranch checks out the main branch, creating it by renaming the current branch if it doesn't exist
func (r *Repo) EnsureMainBranch(ctx context.Context) error {
	if _, err := r.run(ctx, "rev-parse", "--verify", "--quiet", DefaultBranch); err == nil {
		_, err = r.run(ctx, "checkout", DefaultBranch)
		return err
	}
	if _, err := r.run(ctx, "rev-parse", "--verify", "--quiet", "HEAD"); err != nil {
		// No commits yet; point the unborn HEAD at main
		_, err = r.run(ctx, "symbolic-ref", "HEAD", "refs/heads/"+DefaultBranch)
		return err
	}
	_, err := r.run(ctx, "branch", "-M", DefaultBranch)
	return err
}

// Commit records the staged changes. It returns false without error when nothing is staged
func (r *Repo) Commit(ctx context.Context, message string) (bool, error) {
	staged, err := r.HasStagedChanges(ctx)
	if err != nil {
		return false, err
	}
	if !staged {
		return false, nil
	}

	args := append(r.identityArgs(ctx), "commit", "--message", message)
	if _, err := r.run(ctx, args...); err != nil {
		return false, err
	}
	return true, nil
}

// HeadCommit returns the SHA that HEAD points to
func (r *Repo) HeadCommit(ctx context.Context) (string, error) {
	return r.run(ctx, "rev-parse", "HEAD")
}

// RemoteURL returns the URL of the named remote, or "" if the remote does not exist
func (r *Repo) RemoteURL(ctx context.Context, name string) (string, error) {
	out, err := r.run(ctx, "remote")
	if err != nil {
		return "", err
	}
	for _, remote := range strings.Fields(out) {
		if remote == name {
			return r.run(ctx, "remote", "get-url", name)
		}
	}
	return "", nil
}

// SetRemote points the named remote at url, adding the remote if needed
func (r *Repo) SetRemote(ctx context.Context, name string, url string) error {
	existing, err := r.RemoteURL(ctx, name)
	if err != nil {
		return err
	}
	if existing == "" {
		_, err = r.run(ctx, "remote", "add", name, url)
	} else {
		_, err = r.run(ctx, "remote", "set-url", name, url)
	}
	return err
}

// Push pushes branch to remote and sets it as the upstream
func (r *Repo) Push(ctx context.Context, remote string, branch string) error {
	_, err := r.run(ctx, "push", "--set-upstream", remote, branch)
	return err
}

// identityArgs supplies a committer identity when the environment has none configured
func (r *Repo) identityArgs(ctx context.Context) []string {
	email, err := r.run(ctx, "config", "user.email")
	if err == nil && email != "" {
		return nil
	}
	return []string{"-c", "user.name=" + fallbackAuthorName, "-c", "user.email=" + fallbackAuthorEmail}
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.root
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", ErrGitNotFound
		}
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("git %s timed out after %s: %w", args[0], r.timeout, ctx.Err())
		}
		return "", &CommandError{
			Args:   Redact(strings.Join(args, " ")),
			Stderr: Redact(strings.TrimSpace(stderr.String())),
			Err:    err,
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// CommandError is returned when git exits unsuccessfully
type CommandError struct {
	Args   string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("git %s failed: %v", e.Args, e.Err)
	}
	return fmt.Sprintf("git %s failed: %v: %s", e.Args, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Redact hides credentials embedded in URLs
func Redact(s string) string {
	return credentialsPattern.ReplaceAllString(s, "${1}***@")
}
