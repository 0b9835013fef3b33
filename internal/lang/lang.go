// Package lang classifies files into the small set of languages the bot knows how to prompt for and verify.
package lang

import (
	"path/filepath"
	"strings"
)

// Kind is the language of a file, derived once from its extension
type Kind int

const (
	Unknown Kind = iota
	Python
	TypeScript
	JSON
)

// FromPath returns the Kind for the given file path
func FromPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return Python
	case ".ts", ".tsx":
		return TypeScript
	case ".json":
		return JSON
	default:
		return Unknown
	}
}

func (k Kind) String() string {
	switch k {
	case Python:
		return "python"
	case TypeScript:
		return "typescript"
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

// DisplayName is the human-readable language name used in prompts
func (k Kind) DisplayName() string {
	switch k {
	case Python:
		return "Python"
	case TypeScript:
		return "TypeScript"
	case JSON:
		return "JSON"
	default:
		return "the file's language"
	}
}

// Instructions returns extra prompt instructions specific to this kind. May be empty
func (k Kind) Instructions() []string {
	switch k {
	case TypeScript:
		return []string{"Ensure proper TypeScript types and interfaces are maintained."}
	case JSON:
		return []string{"Ensure valid JSON structure and format."}
	default:
		return nil
	}
}
