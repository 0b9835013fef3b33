package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cchalm/codebot/internal/telemetry"
)

var (
	gitCommit = "unknown"
	buildTime = "unknown"
)

// SetVersionInfo records the build metadata stamped into the binary
func SetVersionInfo(version, commit, built string) {
	telemetry.Version = version
	gitCommit = commit
	buildTime = built
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Printing the version must work without any configuration
	PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
	PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "CodeBot %s (commit %s, built %s)\n", telemetry.Version, gitCommit, buildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
