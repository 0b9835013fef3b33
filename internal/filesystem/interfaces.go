// Package filesystem provides file system abstractions and implementations.
package filesystem

import (
	"context"
	"errors"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrIsDir        = errors.New("path is a directory")
	ErrOutsideRoot  = errors.New("path is outside the file system root")
)

// ReadOnlyFileSystem is a basic interface for reading files
type ReadOnlyFileSystem interface {
	// Read reads the content of a file at the given path
	Read(ctx context.Context, path string) (string, error)

	// FileExists returns true if the file at the given path exists, false otherwise
	FileExists(ctx context.Context, path string) (bool, error)

	// IsDir returns true if the given path is a directory, false otherwise
	IsDir(ctx context.Context, dir string) (bool, error)

	// ListDir lists all entries in the given directory. Directory names end with "/"
	ListDir(ctx context.Context, dir string) ([]string, error)
}

// FileSystem is a basic interface for reading and writing files
type FileSystem interface {
	ReadOnlyFileSystem

	// Write writes the content to a file at the given path, creating the file and its parent directories if they
	// don't exist
	Write(ctx context.Context, path string, content string) error

	// Delete deletes a file at the given path
	Delete(ctx context.Context, path string) error
}

// Changelist represents a set of file changes that have not yet been applied
type Changelist interface {
	ForEachModified(fn func(path string, content string) error) error
	ForEachDeleted(fn func(path string) error) error
	IsModified(path string) bool
	IsDeleted(path string) bool
	IsEmpty() bool
}
