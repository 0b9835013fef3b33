package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/go-github/v72/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/cchalm/codebot/internal/ai"
	"github.com/cchalm/codebot/internal/analyzer"
	"github.com/cchalm/codebot/internal/bot"
	"github.com/cchalm/codebot/internal/config"
	"github.com/cchalm/codebot/internal/filesystem"
	githubpkg "github.com/cchalm/codebot/internal/github"
	"github.com/cchalm/codebot/internal/transport"
	"github.com/cchalm/codebot/internal/workspace"
)

func setupContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		logger.Info("Interrupt signal detected, shutting down gracefully...")
		cancel()
		<-interrupt
		logger.Fatal("Forcing shutdown")
	}()

	return ctx
}

func rateLimitedHTTPClient() *http.Client {
	return &http.Client{Transport: transport.WithRateLimiting(nil, logger)}
}

func createGithubClient(ctx context.Context, token string) *github.Client {
	tokenSource := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, rateLimitedHTTPClient())
	return github.NewClient(oauth2.NewClient(ctx, tokenSource))
}

// createAnthropicClient leaves retries to the completer's policy so that attempts are not multiplied
func createAnthropicClient(apiKey string) anthropic.Client {
	return anthropic.NewClient(
		option.WithHTTPClient(rateLimitedHTTPClient()),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
}

// createCompleter builds the configured LLM client. The returned cleanup function releases its resources
func createCompleter(ctx context.Context, cfg *config.Config) (ai.Completer, func(), error) {
	var (
		inner   ai.Completer
		cleanup = func() {}
	)
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		gemini, err := ai.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, nil, err
		}
		inner = gemini
		cleanup = func() { _ = gemini.Close() }
	case config.ProviderAnthropic:
		sender := ai.NewStreamingMessageSender(createAnthropicClient(cfg.AnthropicAPIKey), logger)
		inner = ai.NewAnthropicCompleter(sender, cfg.LLMModel)
	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}

	policy := transport.DefaultRetryPolicy()
	policy.MaxRetries = cfg.LLMMaxRetries
	return ai.NewRetryingCompleter(inner, cfg.LLMProvider, policy, logger), cleanup, nil
}

func newAnalyzer(cfg *config.Config) *analyzer.Analyzer {
	return analyzer.New(analyzer.Options{MinScore: cfg.MinScore}, logger)
}

// newWorkspace builds the apply layer, wired to GitHub when publishing is configured
func newWorkspace(ctx context.Context, cfg *config.Config) *workspace.Workspace {
	var repos githubpkg.RepositoryService
	if cfg.PublishingEnabled() {
		repos = githubpkg.NewRepositoryService(createGithubClient(ctx, cfg.GitHubToken))
	}
	return workspace.New(filesystem.NewOSFileSystem(""), repos, workspace.Options{
		GitTimeout:     cfg.GitTimeout,
		GitHubToken:    cfg.GitHubToken,
		GitHubUsername: cfg.GitHubUsername,
		RepoName:       cfg.GitHubRepoName,
		Private:        cfg.GitHubPrivate,
	}, logger)
}

// newBot wires every component of the fix workflow. The configuration must have been validated
func newBot(ctx context.Context, cfg *config.Config, ws *workspace.Workspace, verifier bot.Verifier) (*bot.Bot, func(), error) {
	completer, cleanup, err := createCompleter(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	b := bot.New(
		completer,
		newAnalyzer(cfg),
		filesystem.NewOSFileSystem(""),
		ws,
		verifier,
		bot.Options{MaxFiles: cfg.MaxFiles},
		logger,
	)
	logger.Debug("Bot ready", zap.String("provider", cfg.LLMProvider), zap.Int("max_files", cfg.MaxFiles))
	return b, cleanup, nil
}
