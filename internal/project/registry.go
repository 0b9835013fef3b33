package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNotFound        = errors.New("project not found")
	ErrOutsideProjects = errors.New("path is not inside a registered project")
)

// Registry keeps the loaded projects in memory, keyed by absolute path
type Registry struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

func NewRegistry() *Registry {
	return &Registry{projects: map[string]*Project{}}
}

// Register adds p, replacing any earlier load of the same path
func (r *Registry) Register(p *Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.Path] = p
}

// Get returns the project loaded from path
func (r *Registry) Get(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[abs]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// List returns every registered project ordered by name, then path
func (r *Registry) List() []*Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].Path < list[j].Path
	})
	return list
}

// Remove forgets the project loaded from path
func (r *Registry) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[abs]; !ok {
		return ErrNotFound
	}
	delete(r.projects, abs)
	return nil
}

// Containing returns the registered project whose directory holds path. Symlinks are resolved on both sides, so a
// link inside a project that points elsewhere does not count as inside it. The innermost project wins when projects
// are nested
func (r *Registry) Containing(path string) (*Project, error) {
	target, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		best    *Project
		bestLen int
	)
	for _, p := range r.projects {
		root, err := resolvePath(p.Path)
		if err != nil {
			continue
		}
		if within(root, target) && len(root) > bestLen {
			best, bestLen = p, len(root)
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrOutsideProjects)
	}
	return best, nil
}

// resolvePath makes path absolute and resolves symlinks in the longest prefix that exists
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	existing := abs
	var rest []string
	for {
		if resolved, err := filepath.EvalSymlinks(existing); err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
