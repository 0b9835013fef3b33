// Package workspace writes accepted fixes to disk and records them in git, optionally publishing them to GitHub.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cchalm/codebot/internal/filesystem"
	"github.com/cchalm/codebot/internal/git"
	githubpkg "github.com/cchalm/codebot/internal/github"
	"github.com/cchalm/codebot/internal/telemetry"
)

// ErrRepositoryNotFound is returned when the file being fixed is not inside a git repository. The file is still
// written
var ErrRepositoryNotFound = errors.New("no git repository found for file")

const maxSubjectLength = 72

// Options configures a Workspace
type Options struct {
	GitTimeout time.Duration

	// Publishing happens only when both GitHubToken and GitHubUsername are set
	GitHubToken    string
	GitHubUsername string
	RepoName       string
	Private        bool

	// RemoteURL builds the push URL. Defaults to an authenticated github.com URL
	RemoteURL func(token, owner, repo string) string
}

func (o Options) publishingEnabled() bool {
	return o.GitHubToken != "" && o.GitHubUsername != ""
}

// ApplyResult describes what happened to one applied fix
type ApplyResult struct {
	Path              string `json:"file_path"`
	Written           bool   `json:"written"`
	RepoRoot          string `json:"repo_root,omitempty"`
	Committed         bool   `json:"committed"`
	CommitMessage     string `json:"commit_message,omitempty"`
	Commit            string `json:"commit,omitempty"`
	RepositoryCreated bool   `json:"repository_created,omitempty"`
	Pushed            bool   `json:"pushed"`
	PushError         string `json:"push_error,omitempty"`
}

// Workspace applies fixes to files on the local disk
type Workspace struct {
	fs     filesystem.FileSystem
	repos  githubpkg.RepositoryService // nil when publishing is disabled
	opts   Options
	locks  *keyedMutex
	logger *zap.Logger
}

// New creates a Workspace writing through fs. repos may be nil when publishing is disabled
func New(fs filesystem.FileSystem, repos githubpkg.RepositoryService, opts Options, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RemoteURL == nil {
		opts.RemoteURL = githubpkg.AuthenticatedRemoteURL
	}
	return &Workspace{
		fs:     fs,
		repos:  repos,
		opts:   opts,
		locks:  newKeyedMutex(),
		logger: logger.Named("workspace"),
	}
}

// Apply writes content to path, then commits it to the enclosing repository on the main branch and pushes when
// publishing is configured. Publishing failures are reported in the result rather than as an error, since the fix
// is already applied and committed by then
func (w *Workspace) Apply(ctx context.Context, path string, content string, description string) (_ ApplyResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "workspace.apply", attribute.String("file.path", path))
	defer func() { telemetry.EndSpan(span, err) }()

	path, err = filepath.Abs(path)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("failed to resolve path: %w", err)
	}
	result := ApplyResult{Path: path}

	root, err := git.FindRoot(filepath.Dir(path))
	if err != nil && !errors.Is(err, git.ErrNotRepository) {
		return result, err
	}

	if root != "" {
		unlock := w.locks.Lock(root)
		defer unlock()
	}

	if err := w.fs.Write(ctx, path, content); err != nil {
		return result, fmt.Errorf("failed to write fix: %w", err)
	}
	result.Written = true
	w.logger.Info("fix written", zap.String("path", path))

	if root == "" {
		return result, fmt.Errorf("%s: %w", path, ErrRepositoryNotFound)
	}
	result.RepoRoot = root

	repo, err := git.Open(root, w.opts.GitTimeout)
	if err != nil {
		return result, err
	}
	if err := w.commit(ctx, repo, path, description, &result); err != nil {
		return result, err
	}

	if result.Committed && w.opts.publishingEnabled() && w.repos != nil {
		if err := w.publish(ctx, repo, &result); err != nil {
			result.PushError = git.Redact(err.Error())
			w.logger.Warn("failed to publish fix", zap.String("repo", root), zap.String("error", result.PushError))
		}
	}
	return result, nil
}

// ApplyChangelist applies every modified file in changelist. It stops at the first failure other than a missing
// repository
func (w *Workspace) ApplyChangelist(ctx context.Context, changelist filesystem.Changelist, description string) ([]ApplyResult, error) {
	var results []ApplyResult
	err := changelist.ForEachModified(func(path string, content string) error {
		result, err := w.Apply(ctx, path, content, description)
		results = append(results, result)
		if err != nil && !errors.Is(err, ErrRepositoryNotFound) {
			return err
		}
		return nil
	})
	return results, err
}

func (w *Workspace) commit(ctx context.Context, repo *git.Repo, path string, description string, result *ApplyResult) error {
	rel, err := repo.RelPath(path)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}

	if err := repo.AddAll(ctx); err != nil {
		return fmt.Errorf("failed to stage fix: %w", err)
	}
	if err := repo.EnsureMainBranch(ctx); err != nil {
		return fmt.Errorf("failed to switch to %s: %w", git.DefaultBranch, err)
	}

	message := CommitMessage(description, rel)
	committed, err := repo.Commit(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to commit fix: %w", err)
	}
	if !committed {
		w.logger.Info("nothing to commit", zap.String("path", rel))
		return nil
	}

	result.Committed = true
	result.CommitMessage = message
	if sha, err := repo.HeadCommit(ctx); err == nil {
		result.Commit = sha
	}
	w.logger.Info("fix committed", zap.String("path", rel), zap.String("commit", result.Commit))
	return nil
}

func (w *Workspace) publish(ctx context.Context, repo *git.Repo, result *ApplyResult) error {
	created, err := w.repos.EnsureRepository(ctx, githubpkg.RepositoryOptions{
		Name:        w.opts.RepoName,
		Description: "Fixes applied by CodeBot",
		Private:     w.opts.Private,
	})
	if err != nil {
		return err
	}
	result.RepositoryCreated = created

	remoteURL := w.opts.RemoteURL(w.opts.GitHubToken, w.opts.GitHubUsername, w.opts.RepoName)
	if err := repo.SetRemote(ctx, git.DefaultRemote, remoteURL); err != nil {
		return fmt.Errorf("failed to configure remote: %w", err)
	}
	if err := repo.Push(ctx, git.DefaultRemote, git.DefaultBranch); err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}
	result.Pushed = true
	w.logger.Info("fix pushed", zap.String("repo", w.opts.RepoName))
	return nil
}

// CommitMessage formats the commit message for a fix. The description is collapsed onto one line and shortened so
// the subject stays readable
func CommitMessage(description string, relPath string) string {
	subject := strings.Join(strings.Fields(description), " ")
	if subject == "" {
		subject = "bug fix"
	}
	if runes := []rune(subject); len(runes) > maxSubjectLength {
		subject = strings.TrimRight(string(runes[:maxSubjectLength]), " .,;:-") + "..."
	}
	return fmt.Sprintf("CodeBot fix: %s in %s", subject, relPath)
}

// keyedMutex serializes work per key, e.g. per repository root
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*refMutex{}}
}

// Lock acquires the lock for key and returns the function that releases it
func (km *keyedMutex) Lock(key string) func() {
	km.mu.Lock()
	m, ok := km.locks[key]
	if !ok {
		m = &refMutex{}
		km.locks[key] = m
	}
	m.refs++
	km.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		km.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}
