package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OSFileSystem reads and writes files on the local disk. Relative paths are resolved against root; absolute paths
// must be inside root
type OSFileSystem struct {
	root string
}

// NewOSFileSystem creates a file system rooted at the given directory. An empty root allows any absolute path
func NewOSFileSystem(root string) OSFileSystem {
	if root != "" {
		root = filepath.Clean(root)
	}
	return OSFileSystem{root: root}
}

// Root returns the directory the file system is rooted at
func (ofs OSFileSystem) Root() string {
	return ofs.root
}

func (ofs OSFileSystem) resolve(path string) (string, error) {
	if ofs.root == "" {
		return filepath.Abs(path)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(ofs.root, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(ofs.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	return path, nil
}

func (ofs OSFileSystem) Read(_ context.Context, path string) (string, error) {
	resolved, err := ofs.resolve(path)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", path, ErrFileNotFound)
	} else if err != nil {
		info, statErr := os.Stat(resolved)
		if statErr == nil && info.IsDir() {
			return "", fmt.Errorf("%s: %w", path, ErrIsDir)
		}
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(b), nil
}

func (ofs OSFileSystem) FileExists(_ context.Context, path string) (bool, error) {
	resolved, err := ofs.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return !info.IsDir(), nil
}

func (ofs OSFileSystem) IsDir(_ context.Context, dir string) (bool, error) {
	resolved, err := ofs.resolve(dir)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to stat directory: %w", err)
	}
	return info.IsDir(), nil
}

func (ofs OSFileSystem) ListDir(_ context.Context, dir string) ([]string, error) {
	resolved, err := ofs.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", dir, ErrFileNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (ofs OSFileSystem) Write(_ context.Context, path string, content string) error {
	resolved, err := ofs.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directories: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (ofs OSFileSystem) Delete(_ context.Context, path string) error {
	resolved, err := ofs.resolve(path)
	if err != nil {
		return err
	}
	err = os.Remove(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrFileNotFound)
	} else if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ApplyChangelist writes every modified file and removes every deleted file in the changelist
func ApplyChangelist(ctx context.Context, target FileSystem, changelist Changelist) error {
	err := changelist.ForEachModified(func(path string, content string) error {
		return target.Write(ctx, path, content)
	})
	if err != nil {
		return err
	}
	return changelist.ForEachDeleted(func(path string) error {
		return target.Delete(ctx, path)
	})
}
