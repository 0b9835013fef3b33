// Package bot orchestrates finding, proposing and applying bug fixes.
package bot

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cchalm/codebot/internal/ai"
	"github.com/cchalm/codebot/internal/analyzer"
	"github.com/cchalm/codebot/internal/diff"
	"github.com/cchalm/codebot/internal/filesystem"
	"github.com/cchalm/codebot/internal/lang"
	"github.com/cchalm/codebot/internal/telemetry"
	"github.com/cchalm/codebot/internal/verify"
	"github.com/cchalm/codebot/internal/workspace"
)

// DefaultMaxFiles is how many of the most relevant files get a proposal
const DefaultMaxFiles = 3

// Status is the outcome of proposing a fix for one file
type Status string

const (
	StatusNotFound  Status = "not_found"
	StatusNoChanges Status = "no_changes"
	StatusProposed  Status = "proposed"
	StatusFailed    Status = "failed"
)

// Proposal is a fix suggested for one file. Nothing has been written when a Proposal is returned
type Proposal struct {
	Status    Status   `json:"status"`
	Path      string   `json:"file"`
	Kind      string   `json:"file_type"`
	Score     float64  `json:"score,omitempty"`
	Changes   []string `json:"changes,omitempty"`
	Diff      string   `json:"full_diff,omitempty"`
	FixedCode string   `json:"fixed_code,omitempty"`
	Message   string   `json:"message,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Report is the result of proposing fixes across a project
type Report struct {
	BugType        analyzer.Category       `json:"bug_type"`
	Classification analyzer.Classification `json:"classification"`
	Previews       []Proposal              `json:"previews"`
}

// ApplyOptions controls ApplyFix
type ApplyOptions struct {
	Verify bool
}

// ApplyResult is the outcome of applying a fix
type ApplyResult struct {
	workspace.ApplyResult
	Verification *verify.Result `json:"verification,omitempty"`
}

// Applier writes and commits fixes
type Applier interface {
	Apply(ctx context.Context, path string, content string, description string) (workspace.ApplyResult, error)
}

// Verifier checks a file after a fix is written
type Verifier interface {
	Verify(ctx context.Context, path string) (verify.Result, error)
}

// Bot proposes fixes for described bugs and applies the ones that are accepted
type Bot struct {
	completer ai.Completer
	analyzer  *analyzer.Analyzer
	fs        filesystem.ReadOnlyFileSystem
	applier   Applier
	verifier  Verifier
	maxFiles  int
	logger    *zap.Logger
}

// Options configures a Bot
type Options struct {
	MaxFiles int
}

// New creates a Bot. verifier may be nil, in which case verification requests are ignored
func New(
	completer ai.Completer,
	analyzer *analyzer.Analyzer,
	fs filesystem.ReadOnlyFileSystem,
	applier Applier,
	verifier Verifier,
	opts Options,
	logger *zap.Logger,
) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	return &Bot{
		completer: completer,
		analyzer:  analyzer,
		fs:        fs,
		applier:   applier,
		verifier:  verifier,
		maxFiles:  opts.MaxFiles,
		logger:    logger.Named("bot"),
	}
}

// ProposeFix asks the model for a fixed version of the file at path and diffs it against the current content. A
// missing file is reported through the proposal status. Every call queries the model again
func (b *Bot) ProposeFix(ctx context.Context, path string, description string) (_ Proposal, err error) {
	ctx, span := telemetry.StartSpan(ctx, "bot.propose_fix", attribute.String("file.path", path))
	defer func() { telemetry.EndSpan(span, err) }()

	kind := lang.FromPath(path)
	proposal := Proposal{Path: path, Kind: kind.String()}

	code, err := b.fs.Read(ctx, path)
	if errors.Is(err, filesystem.ErrFileNotFound) {
		proposal.Status = StatusNotFound
		proposal.Error = fmt.Sprintf("File %s not found.", path)
		return proposal, nil
	}
	if err != nil {
		return Proposal{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	prompt, err := ai.BuildFixPrompt(path, kind, code, description)
	if err != nil {
		return Proposal{}, err
	}
	output, err := b.completer.Complete(ctx, prompt)
	if err != nil {
		return Proposal{}, fmt.Errorf("failed to generate fix for %s: %w", path, err)
	}
	fixed := ai.ExtractCode(output)

	d, err := diff.Compute(path, code, fixed)
	if err != nil {
		return Proposal{}, err
	}
	if d.IsEmpty() {
		proposal.Status = StatusNoChanges
		proposal.Message = "No changes needed"
		return proposal, nil
	}

	proposal.Status = StatusProposed
	proposal.Changes = d.Changes
	proposal.Diff = d.Unified
	proposal.FixedCode = fixed
	b.logger.Info("fix proposed", zap.String("path", path), zap.Int("changes", len(d.Changes)))
	return proposal, nil
}

// ProposeFixes ranks the files under root by relevance to description and proposes fixes for the top few. A failure
// on one file is recorded in its proposal and the rest are still attempted
func (b *Bot) ProposeFixes(ctx context.Context, root string, description string) (_ Report, err error) {
	ctx, span := telemetry.StartSpan(ctx, "bot.propose_fixes", attribute.String("project.root", root))
	defer func() { telemetry.EndSpan(span, err) }()

	classification := analyzer.ClassifyBugType(description)
	report := Report{
		BugType:        classification.MostLikely(),
		Classification: classification,
		Previews:       []Proposal{},
	}

	ranked, err := b.analyzer.FindRelevantFiles(ctx, root, description)
	if err != nil {
		return report, err
	}
	if len(ranked) > b.maxFiles {
		ranked = ranked[:b.maxFiles]
	}
	span.SetAttributes(attribute.Int("files.relevant", len(ranked)))

	for _, file := range ranked {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		proposal, err := b.ProposeFix(ctx, file.Path, description)
		if err != nil {
			b.logger.Warn("failed to propose fix", zap.String("path", file.Path), zap.Error(err))
			proposal = Proposal{
				Status: StatusFailed,
				Path:   file.Path,
				Kind:   lang.FromPath(file.Path).String(),
				Error:  err.Error(),
			}
		}
		proposal.Score = file.Score
		report.Previews = append(report.Previews, proposal)
	}
	return report, nil
}

// ApplyFix writes an accepted fix and commits it. A missing repository is returned as an error alongside a result
// showing the file was written
func (b *Bot) ApplyFix(ctx context.Context, path string, content string, description string, opts ApplyOptions) (ApplyResult, error) {
	applied, err := b.applier.Apply(ctx, path, content, description)
	result := ApplyResult{ApplyResult: applied}
	if err != nil && !applied.Written {
		return result, err
	}

	if opts.Verify && b.verifier != nil {
		v, verr := b.verifier.Verify(ctx, applied.Path)
		if verr != nil {
			return result, verr
		}
		result.Verification = &v
	}
	return result, err
}
