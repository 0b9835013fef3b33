package analyzer

import "strings"

// Category is a kind of bug, used only as a diagnostic label
type Category string

const (
	CategorySyntax     Category = "syntax"
	CategoryRuntime    Category = "runtime"
	CategoryTypeScript Category = "typescript"
	CategoryFrontend   Category = "frontend"
	CategoryBackend    Category = "backend"
	CategoryStyle      Category = "style"
)

// activationScore is the score of a category when any of its keywords is present
const activationScore = 0.8

// Categories lists every category in tie-breaking order
var Categories = []Category{
	CategorySyntax,
	CategoryRuntime,
	CategoryTypeScript,
	CategoryFrontend,
	CategoryBackend,
	CategoryStyle,
}

var categoryKeywords = map[Category][]string{
	CategorySyntax:     {"syntax", "parsing", "compile", "typo", "missing", "bracket", "parenthesis"},
	CategoryRuntime:    {"runtime", "crash", "exception", "undefined", "null"},
	CategoryTypeScript: {"type", "interface", "typescript", ".tsx", ".ts"},
	CategoryFrontend:   {"ui", "display", "screen", "component", "render", "style", "css", "html"},
	CategoryBackend:    {"api", "database", "server", "endpoint", "request"},
	CategoryStyle:      {"style", "css", "layout", "design", "position"},
}

// Classification maps every category to its score. Categories are not mutually exclusive
type Classification map[Category]float64

// ClassifyBugType tags a bug description with the categories whose keywords it mentions. Keywords match as
// substrings of the lower-cased description, and one match fully activates a category
func ClassifyBugType(description string) Classification {
	description = strings.ToLower(description)

	classification := Classification{}
	for _, category := range Categories {
		classification[category] = 0
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(description, keyword) {
				classification[category] = activationScore
				break
			}
		}
	}
	return classification
}

// MostLikely returns the highest scoring category, preferring the earliest in Categories on ties
func (c Classification) MostLikely() Category {
	best := Categories[0]
	for _, category := range Categories[1:] {
		if c[category] > c[best] {
			best = category
		}
	}
	return best
}

// Active returns the activated categories in Categories order
func (c Classification) Active() []Category {
	var active []Category
	for _, category := range Categories {
		if c[category] > 0 {
			active = append(active, category)
		}
	}
	return active
}
