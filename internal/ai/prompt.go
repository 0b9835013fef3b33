package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/cchalm/codebot/internal/lang"
)

//go:embed fix_prompt.tmpl
var fixPromptTemplate string

var fixPrompt = template.Must(template.New("fix").Parse(fixPromptTemplate))

// fencePattern matches the first fenced code block, with or without a language tag
var fencePattern = regexp.MustCompile("```(?:\\w+)?\\s*([\\s\\S]*?)```")

type fixPromptData struct {
	Language     string
	Path         string
	Instructions []string
	Code         string
	Description  string
}

// BuildFixPrompt renders the instruction sent to the model for fixing a single file
func BuildFixPrompt(path string, kind lang.Kind, code string, description string) (string, error) {
	data := fixPromptData{
		Language:     kind.DisplayName(),
		Path:         path,
		Instructions: kind.Instructions(),
		Code:         code,
		Description:  description,
	}

	var buf bytes.Buffer
	if err := fixPrompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute fix prompt template: %w", err)
	}
	return buf.String(), nil
}

// ExtractCode returns the contents of the first fenced code block in output, trimmed. Output without a fence is
// returned whole, trimmed
func ExtractCode(output string) string {
	if m := fencePattern.FindStringSubmatch(output); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(output)
}

// TrimBackticks removes stray backticks around code pasted back by a client
func TrimBackticks(code string) string {
	return strings.Trim(code, "`")
}
