// Package diff produces line diffs between a file's current content and a proposed replacement.
package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const contextLines = 3

// Result is the difference between two versions of a file
type Result struct {
	// Unified is the diff in unified format, empty if there are no differences
	Unified string
	// Changes holds only the added and removed lines, prefixed with '+' or '-'
	Changes []string
}

// IsEmpty returns true if the two versions have the same lines
func (r Result) IsEmpty() bool {
	return len(r.Changes) == 0
}

// Compute diffs oldContent against newContent line by line. Line endings and a trailing newline are not significant
func Compute(path string, oldContent string, newContent string) (Result, error) {
	a := splitLines(oldContent)
	b := splitLines(newContent)

	var changes []string
	matcher := difflib.NewMatcher(a, b)
	for _, op := range matcher.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		if op.Tag == 'r' || op.Tag == 'd' {
			for _, line := range a[op.I1:op.I2] {
				changes = append(changes, "-"+strings.TrimSuffix(line, "\n"))
			}
		}
		if op.Tag == 'r' || op.Tag == 'i' {
			for _, line := range b[op.J1:op.J2] {
				changes = append(changes, "+"+strings.TrimSuffix(line, "\n"))
			}
		}
	}
	if len(changes) == 0 {
		return Result{}, nil
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  contextLines,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to format unified diff: %w", err)
	}

	return Result{Unified: unified, Changes: changes}, nil
}

// splitLines splits s into newline-terminated lines, ignoring a single trailing newline and carriage returns
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i := range lines {
		lines[i] += "\n"
	}
	return lines
}
