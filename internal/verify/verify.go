// Package verify checks that a fixed file still parses, using the toolchain of its language.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cchalm/codebot/internal/lang"
)

const DefaultTimeout = 2 * time.Minute

// Result is the outcome of verifying one file
type Result struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// Verifier runs syntax checks
type Verifier struct {
	timeout  time.Duration
	commands map[lang.Kind][]string
	logger   *zap.Logger
}

// NewVerifier creates a Verifier that uses python3 for Python files and the project's TypeScript compiler for
// TypeScript files
func NewVerifier(timeout time.Duration, logger *zap.Logger) *Verifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		timeout: timeout,
		commands: map[lang.Kind][]string{
			lang.Python:     {"python3", "-m", "py_compile"},
			lang.TypeScript: {"npx", "tsc", "--noEmit"},
		},
		logger: logger.Named("verify"),
	}
}

// Verify checks the file at path according to its kind. Verification failures are reported in the result; only a
// cancelled context produces an error
func (v *Verifier) Verify(ctx context.Context, path string) (Result, error) {
	kind := lang.FromPath(path)
	result := Result{Path: path, Kind: kind.String()}

	var err error
	switch kind {
	case lang.JSON:
		err = verifyJSON(path)
	case lang.Python, lang.TypeScript:
		err = v.runTool(ctx, v.commands[kind], path)
	default:
		result.Passed = true
		result.Message = "no verifier available for this file type"
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	if err != nil {
		result.Message = err.Error()
		v.logger.Debug("verification failed", zap.String("path", path), zap.Error(err))
		return result, nil
	}
	result.Passed = true
	return result, nil
}

func verifyJSON(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading JSON file: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("JSON syntax error: %w", err)
	}
	return nil
}

func (v *Verifier) runTool(ctx context.Context, command []string, path string) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	args := append(append([]string{}, command[1:]...), path)
	cmd := exec.CommandContext(ctx, command[0], args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%s not found; install it to verify %s files", command[0], lang.FromPath(path).DisplayName())
	}
	if msg := strings.TrimSpace(output.String()); msg != "" {
		return errors.New(msg)
	}
	return err
}
