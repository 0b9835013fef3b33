// Package project registers local project directories that CodeBot can work on.
package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cchalm/codebot/internal/git"
)

// sniffSize is how much of each file is inspected to decide whether it is text
const sniffSize = 2048

var ErrNotDirectory = errors.New("project path is not a directory")

// FileMeta is what is recorded about each text file of a project
type FileMeta struct {
	Functions []string `json:"functions"`
}

// Project is a loaded project directory
type Project struct {
	Name     string              `json:"name"`
	Path     string              `json:"path"`
	Files    map[string]FileMeta `json:"files"` // Keyed by "<name>/<relative path>"
	LoadedAt time.Time           `json:"loaded_at"`
	// GitInitialized is true when Load created the repository
	GitInitialized bool `json:"git_initialized"`
}

// Loader loads projects from disk
type Loader struct {
	gitTimeout time.Duration
	logger     *zap.Logger
}

func NewLoader(gitTimeout time.Duration, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{gitTimeout: gitTimeout, logger: logger.Named("project")}
}

// Load walks every file under root and records the text files. A git repository is initialized at root when none
// exists; failure to do so is logged and does not fail the load
func (l *Loader) Load(ctx context.Context, root string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read project path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotDirectory)
	}

	p := &Project{
		Name:     filepath.Base(abs),
		Path:     abs,
		Files:    map[string]FileMeta{},
		LoadedAt: time.Now().UTC(),
	}

	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == abs {
				return err
			}
			l.logger.Debug("skipping unreadable entry", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		text, err := isTextFile(path)
		if err != nil {
			l.logger.Debug("skipping unreadable file", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !text {
			return nil
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		p.Files[p.Name+"/"+filepath.ToSlash(rel)] = FileMeta{Functions: []string{}}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk project: %w", err)
	}

	if _, err := os.Stat(filepath.Join(abs, ".git")); errors.Is(err, fs.ErrNotExist) {
		if _, err := git.Init(ctx, abs, l.gitTimeout); err != nil {
			l.logger.Warn("failed to initialize git repository", zap.String("path", abs), zap.Error(err))
		} else {
			p.GitInitialized = true
		}
	}

	l.logger.Info("project loaded", zap.String("name", p.Name), zap.Int("files", len(p.Files)))
	return p, nil
}

func isTextFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return looksLikeText(buf[:n]), nil
}

// looksLikeText accepts valid UTF-8 without NUL bytes. A multi-byte rune cut off by the sample boundary is tolerated
func looksLikeText(b []byte) bool {
	if bytes.IndexByte(b, 0) >= 0 {
		return false
	}
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			return len(b) < utf8.UTFMax && !utf8.FullRune(b)
		}
		b = b[size:]
	}
	return true
}
