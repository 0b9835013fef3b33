package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cchalm/codebot/internal/config"
	"github.com/cchalm/codebot/internal/logging"
	"github.com/cchalm/codebot/internal/telemetry"
)

var (
	v          = viper.New()
	configFile string

	cfg            *config.Config
	logger         = zap.NewNop()
	tracerProvider *telemetry.Provider
)

var rootCmd = &cobra.Command{
	Use:   "codebot",
	Short: "AI assistant that locates and fixes bugs in a local project",
	Long: `CodeBot takes a plain-language bug description, finds the files in a project most likely
to contain the bug, asks a language model for corrected versions and shows them as diffs.
Accepted fixes are written to disk, committed to git and optionally pushed to GitHub.`,
	SilenceUsage:       true,
	PersistentPreRunE:  loadRootConfig,
	PersistentPostRunE: shutdown,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Optional config file (yaml, json or toml); the environment overrides it")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("project", ".", "Project directory to work on")
	flags.String("provider", config.ProviderGemini, "LLM provider: gemini or anthropic")
	flags.String("model", "", "LLM model; empty selects the provider's default")
	flags.String("db", "codebot.db", "SQLite database holding users, sessions and todos")

	_ = v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = v.BindPFlag(config.KeyProjectPath, flags.Lookup("project"))
	_ = v.BindPFlag(config.KeyLLMProvider, flags.Lookup("provider"))
	_ = v.BindPFlag(config.KeyLLMModel, flags.Lookup("model"))
	_ = v.BindPFlag(config.KeyDBPath, flags.Lookup("db"))
}

func loadRootConfig(cmd *cobra.Command, _ []string) error {
	foundDotEnv := config.LoadDotEnv()

	var err error
	cfg, err = config.Load(v, configFile)
	if err != nil {
		return err
	}

	logger, err = logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	if !foundDotEnv {
		logger.Debug("No .env file found, using environment variables")
	}

	tracerProvider, err = telemetry.NewProvider(cmd.Context(), telemetry.TelemetryConfig{
		Enabled:      cfg.TelemetryEnabled,
		OTLPEndpoint: cfg.OTLPEndpoint,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	return nil
}

func shutdown(_ *cobra.Command, _ []string) error {
	if tracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	_ = logger.Sync()
	return nil
}
