package analyzer

import (
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	keywordBoost = 0.2
	maxScore     = 1.0
)

// boostKeywords each add keywordBoost when present in both the description and the file content
var boostKeywords = []string{"error", "bug"}

// termPattern matches word-character runs, including non-ASCII letters and digits
var termPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// SkipReason explains why a file was scored as irrelevant without being examined
type SkipReason int

const (
	NotSkipped SkipReason = iota
	SkipUnreadable
	SkipNotText
)

func (sr SkipReason) String() string {
	switch sr {
	case SkipUnreadable:
		return "unreadable"
	case SkipNotText:
		return "not valid UTF-8 text"
	default:
		return "not skipped"
	}
}

// FileScore is the relevance of one file to a bug description
type FileScore struct {
	Path  string
	Score float64 // In [0, 1]

	Skip SkipReason
	Err  error // The underlying error when Skip is SkipUnreadable
}

// Skipped returns true if the file could not be examined. A skipped file always has a score of 0
func (fs FileScore) Skipped() bool {
	return fs.Skip != NotSkipped
}

// Terms returns the distinct lower-cased terms of a description
func Terms(description string) map[string]struct{} {
	terms := map[string]struct{}{}
	for _, term := range termPattern.FindAllString(strings.ToLower(description), -1) {
		terms[term] = struct{}{}
	}
	return terms
}

// ScoreContent computes how likely content is to contain the described bug. The score is the fraction of distinct
// description terms found anywhere in the content, plus fixed boosts for shared keywords, clamped to [0, 1]
func ScoreContent(description string, content string) float64 {
	description = strings.ToLower(description)
	content = strings.ToLower(content)

	terms := Terms(description)
	if len(terms) == 0 {
		return 0
	}

	matches := 0
	for term := range terms {
		if strings.Contains(content, term) {
			matches++
		}
	}
	score := float64(matches) / float64(len(terms))

	for _, keyword := range boostKeywords {
		if strings.Contains(description, keyword) && strings.Contains(content, keyword) {
			score += keywordBoost
		}
	}

	return min(max(score, 0), maxScore)
}

// ScoreFile reads the file at path and scores it against description. Files that cannot be read or are not text
// score 0 and carry a skip reason instead of an error
func ScoreFile(path string, description string) FileScore {
	b, err := os.ReadFile(path)
	if err != nil {
		return FileScore{Path: path, Skip: SkipUnreadable, Err: err}
	}
	if !utf8.Valid(b) {
		return FileScore{Path: path, Skip: SkipNotText}
	}
	return FileScore{Path: path, Score: ScoreContent(description, string(b))}
}
