package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cchalm/codebot/internal/bot"
	"github.com/cchalm/codebot/internal/filesystem"
	"github.com/cchalm/codebot/internal/verify"
	"github.com/cchalm/codebot/internal/workspace"
)

var verifyFixes bool

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Interactively describe bugs and review proposed fixes",
	Long: `Enters fix mode on the project. For each bug description the most relevant files are
analyzed and a fix is proposed for each of them. Every proposed diff is shown and applied only
after confirmation; accepted fixes are committed together.`,
	RunE: runFix,
}

func init() {
	fixCmd.Flags().BoolVar(&verifyFixes, "verify", false, "Check the syntax of each file after applying its fix")
	rootCmd.AddCommand(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := setupContext()

	ws := newWorkspace(ctx, cfg)
	b, cleanup, err := newBot(ctx, cfg, ws, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	session := &fixSession{
		proposer: b,
		applier:  ws,
		root:     cfg.ProjectPath,
		in:       bufio.NewScanner(cmd.InOrStdin()),
		out:      cmd.OutOrStdout(),
	}
	if verifyFixes {
		session.verifier = verify.NewVerifier(0, logger)
	}
	return session.run(ctx)
}

type fixProposer interface {
	ProposeFixes(ctx context.Context, root string, description string) (bot.Report, error)
}

type changelistApplier interface {
	ApplyChangelist(ctx context.Context, changelist filesystem.Changelist, description string) ([]workspace.ApplyResult, error)
}

type fileVerifier interface {
	Verify(ctx context.Context, path string) (verify.Result, error)
}

// fixSession is the interactive fix loop. Accepted fixes for one description are staged in memory and applied
// together once every proposal has been reviewed
type fixSession struct {
	proposer fixProposer
	applier  changelistApplier
	verifier fileVerifier // nil disables verification
	root     string
	in       *bufio.Scanner
	out      io.Writer
}

func (s *fixSession) run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Entering fix mode. Type 'done' or 'exit' to quit.")
	for {
		description, ok := s.ask("\nDescribe the bug/fix requirement (or 'done'/'exit'): ")
		if !ok {
			return nil
		}
		switch strings.ToLower(description) {
		case "":
			continue
		case "done", "exit":
			fmt.Fprintln(s.out, "Exiting CodeBot.")
			return nil
		}

		if err := s.fixBug(ctx, description); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

func (s *fixSession) fixBug(ctx context.Context, description string) error {
	fmt.Fprintln(s.out, "Analyzing project files to locate the bug...")
	report, err := s.proposer.ProposeFixes(ctx, s.root, description)
	if err != nil {
		return err
	}
	if len(report.Previews) == 0 {
		fmt.Fprintln(s.out, "Could not find any relevant files matching the bug description.")
		return nil
	}
	fmt.Fprintf(s.out, "Bug appears to be %s-related\n", report.BugType)

	staging := filesystem.NewMemDiffFileSystem(filesystem.NewOSFileSystem(""))
	for _, proposal := range report.Previews {
		rel := s.relPath(proposal.Path)
		fmt.Fprintf(s.out, "\nAnalyzing %s (relevance score: %.2f)\n", rel, proposal.Score)

		switch proposal.Status {
		case bot.StatusProposed:
			fmt.Fprint(s.out, proposal.Diff)
			answer, ok := s.ask("Apply this fix? (yes/no): ")
			if !ok {
				return nil
			}
			if !isYes(answer) {
				fmt.Fprintf(s.out, "Skipped %s\n", rel)
				continue
			}
			if err := staging.Write(ctx, proposal.Path, proposal.FixedCode); err != nil {
				return err
			}
		case bot.StatusNoChanges:
			fmt.Fprintln(s.out, "No changes needed")
		default:
			fmt.Fprintf(s.out, "Error while fixing %s: %s\n", rel, proposal.Error)
		}
	}

	if !staging.HasChanges() {
		fmt.Fprintln(s.out, "\nNo files were fixed for this bug.")
		return nil
	}

	results, err := s.applier.ApplyChangelist(ctx, staging.GetChangelist(), description)
	for _, result := range results {
		s.report(ctx, result)
	}
	return err
}

func (s *fixSession) report(ctx context.Context, result workspace.ApplyResult) {
	rel := s.relPath(result.Path)
	switch {
	case result.RepoRoot == "":
		fmt.Fprintf(s.out, "Applied %s (no git repository found, not committed)\n", rel)
	case result.Committed:
		fmt.Fprintf(s.out, "Applied and committed %s: %s\n", rel, result.CommitMessage)
	default:
		fmt.Fprintf(s.out, "Applied %s (nothing to commit)\n", rel)
	}
	if result.Pushed {
		fmt.Fprintln(s.out, "Pushed to GitHub")
	}
	if result.PushError != "" {
		fmt.Fprintf(s.out, "Push failed: %s\n", result.PushError)
	}

	if s.verifier == nil {
		return
	}
	v, err := s.verifier.Verify(ctx, result.Path)
	switch {
	case err != nil:
		fmt.Fprintf(s.out, "Could not verify %s: %v\n", rel, err)
	case v.Passed:
		fmt.Fprintf(s.out, "Verified %s\n", rel)
	default:
		fmt.Fprintf(s.out, "Verification failed for %s: %s\n", rel, v.Message)
	}
}

// ask prints prompt and reads one trimmed line. It returns false when input is exhausted
func (s *fixSession) ask(prompt string) (string, bool) {
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *fixSession) relPath(path string) string {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
