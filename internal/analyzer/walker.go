// Package analyzer locates the files in a project that most likely contain a described bug.
package analyzer

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// DefaultExcludeDirs are directory names that are never descended into
var DefaultExcludeDirs = []string{"venv", "__pycache__", ".git", "codebot"}

// DefaultExtensions are the source, markup and config extensions considered for scoring
var DefaultExtensions = []string{".py", ".tsx", ".ts", ".js", ".jsx", ".json", ".css", ".html"}

// WalkOptions controls which directories are pruned and which files are yielded
type WalkOptions struct {
	ExcludeDirs []string
	Extensions  []string
}

// DefaultWalkOptions returns the walk options used when none are configured
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{
		ExcludeDirs: append([]string(nil), DefaultExcludeDirs...),
		Extensions:  append([]string(nil), DefaultExtensions...),
	}
}

func (wo WalkOptions) isExcluded(name string) bool {
	for _, excluded := range wo.ExcludeDirs {
		if name == excluded {
			return true
		}
	}
	return false
}

// skipDir reports whether a directory must be pruned before descent
func (wo WalkOptions) skipDir(name string) bool {
	return wo.isExcluded(name) || strings.HasPrefix(name, ".") || strings.HasSuffix(name, "env")
}

// skipFile reports whether a file is hidden and named after an excluded directory, e.g. ".venv.json"
func (wo WalkOptions) skipFile(name string) bool {
	if !strings.HasPrefix(name, ".") {
		return false
	}
	for _, excluded := range wo.ExcludeDirs {
		if strings.Contains(name, excluded) {
			return true
		}
	}
	return false
}

func (wo WalkOptions) hasAllowedExtension(name string) bool {
	for _, ext := range wo.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Walk calls fn with the absolute path of every candidate source file under root. Excluded directories are pruned
// before they are read. Unreadable subdirectories are skipped silently; an unreadable root is an error. Returning an
// error from fn stops the walk and that error is returned
func Walk(root string, opts WalkOptions, fn func(path string) error) error {
	absRoot, err := filepath.Abs(strings.TrimSpace(root))
	if err != nil {
		return fmt.Errorf("failed to resolve project path '%s': %w", root, err)
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return fmt.Errorf("failed to read project root: %w", err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != absRoot && opts.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if opts.skipFile(d.Name()) || !opts.hasAllowedExtension(d.Name()) {
			return nil
		}
		return fn(path)
	})
}
