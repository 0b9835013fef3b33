package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cchalm/codebot/internal/analyzer"
)

var scanCmd = &cobra.Command{
	Use:   "scan <bug description>",
	Short: "Rank the project's files by relevance to a bug, without calling a model",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := setupContext()
	description := strings.Join(args, " ")

	classification := analyzer.ClassifyBugType(description)
	ranked, err := newAnalyzer(cfg).FindRelevantFiles(ctx, cfg.ProjectPath, description)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Bug type: %s", classification.MostLikely())
	if active := classification.Active(); len(active) > 0 {
		fmt.Fprintf(out, " (matched: %v)", active)
	}
	fmt.Fprintln(out)

	if len(ranked) == 0 {
		fmt.Fprintln(out, "No relevant files found for this bug.")
		return nil
	}
	root, _ := filepath.Abs(cfg.ProjectPath)
	for i, file := range ranked {
		path := file.Path
		if rel, err := filepath.Rel(root, file.Path); err == nil {
			path = rel
		}
		marker := " "
		if i < cfg.MaxFiles {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %.2f  %s\n", marker, file.Score, path)
	}
	return nil
}
