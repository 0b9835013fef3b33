package filesystem

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
)

// MemDiffFileSystem sits on top of a ReadOnlyFileSystem and tracks changes in-memory. Nothing is written to the base
// file system; the staged changes are available as a Changelist
type MemDiffFileSystem struct {
	baseFileSystem ReadOnlyFileSystem

	workingTree  map[string]string   // path -> content (files we've modified)
	deletedFiles map[string]struct{} // path -> struct{}{} (files we've deleted)
}

// NewMemDiffFileSystem creates a new in-memory diff file system
func NewMemDiffFileSystem(baseFileSystem ReadOnlyFileSystem) *MemDiffFileSystem {
	return &MemDiffFileSystem{
		baseFileSystem: baseFileSystem,
		workingTree:    map[string]string{},
		deletedFiles:   map[string]struct{}{},
	}
}

// Read reads a file with any in-memory changes applied
func (dfs *MemDiffFileSystem) Read(ctx context.Context, path string) (string, error) {
	if _, ok := dfs.deletedFiles[path]; ok {
		return "", fmt.Errorf("file is deleted: %w", ErrFileNotFound)
	}
	if content, exists := dfs.workingTree[path]; exists {
		return content, nil
	}
	return dfs.baseFileSystem.Read(ctx, path)
}

// Write writes a file in-memory
func (dfs *MemDiffFileSystem) Write(_ context.Context, path string, content string) error {
	dfs.workingTree[path] = content
	delete(dfs.deletedFiles, path)
	return nil
}

// Delete marks a file as deleted in-memory
func (dfs *MemDiffFileSystem) Delete(ctx context.Context, path string) error {
	exists, err := dfs.FileExists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", path, ErrFileNotFound)
	}
	dfs.deletedFiles[path] = struct{}{}
	delete(dfs.workingTree, path)
	return nil
}

// FileExists checks if a file exists in the current state
func (dfs *MemDiffFileSystem) FileExists(ctx context.Context, path string) (bool, error) {
	_, err := dfs.Read(ctx, path)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsDir checks if a path is a directory in the base file system
func (dfs *MemDiffFileSystem) IsDir(ctx context.Context, dir string) (bool, error) {
	return dfs.baseFileSystem.IsDir(ctx, dir)
}

// ListDir lists the contents of a directory, including files that only exist in-memory
func (dfs *MemDiffFileSystem) ListDir(ctx context.Context, dir string) ([]string, error) {
	baseNames, err := dfs.baseFileSystem.ListDir(ctx, dir)
	if err != nil {
		return nil, err
	}

	names := map[string]struct{}{}
	for _, name := range baseNames {
		if _, ok := dfs.deletedFiles[path.Join(dir, name)]; !ok {
			names[name] = struct{}{}
		}
	}
	for p := range dfs.workingTree {
		if path.Dir(p) == path.Clean(dir) {
			names[path.Base(p)] = struct{}{}
		}
	}

	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}

// HasChanges checks if there are any changes on top of the base file system
func (dfs *MemDiffFileSystem) HasChanges() bool {
	return len(dfs.workingTree) > 0 || len(dfs.deletedFiles) > 0
}

// Reset discards all in-memory changes
func (dfs *MemDiffFileSystem) Reset() {
	dfs.workingTree = map[string]string{}
	dfs.deletedFiles = map[string]struct{}{}
}

// GetChangelist returns the staged changes
func (dfs *MemDiffFileSystem) GetChangelist() MemChangelist {
	return MemChangelist{
		modified: dfs.workingTree,
		deleted:  dfs.deletedFiles,
	}
}

// MemChangelist is a Changelist backed by maps. Paths are visited in lexical order
type MemChangelist struct {
	modified map[string]string
	deleted  map[string]struct{}
}

func (mc MemChangelist) ForEachModified(fn func(path string, content string) error) error {
	for _, p := range sortedKeys(mc.modified) {
		if err := fn(p, mc.modified[p]); err != nil {
			return fmt.Errorf("error while handling modified file '%s': %w", p, err)
		}
	}
	return nil
}

func (mc MemChangelist) ForEachDeleted(fn func(path string) error) error {
	for _, p := range sortedKeys(mc.deleted) {
		if err := fn(p); err != nil {
			return fmt.Errorf("error while handling deleted file '%s': %w", p, err)
		}
	}
	return nil
}

func (mc MemChangelist) IsModified(path string) bool {
	_, ok := mc.modified[path]
	return ok
}

func (mc MemChangelist) IsDeleted(path string) bool {
	_, ok := mc.deleted[path]
	return ok
}

func (mc MemChangelist) IsEmpty() bool {
	return len(mc.modified) == 0 && len(mc.deleted) == 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
