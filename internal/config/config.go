// Package config provides configuration management for CodeBot.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Keys, as they appear in the environment and in the optional config file
const (
	KeyGeminiAPIKey     = "GEMINI_API_KEY"
	KeyAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	KeyLLMProvider      = "LLM_PROVIDER"
	KeyLLMModel         = "LLM_MODEL"
	KeyLLMMaxRetries    = "LLM_MAX_RETRIES"
	KeyGitHubToken      = "GITHUB_TOKEN"
	KeyGitHubUsername   = "GITHUB_USERNAME"
	KeyGitHubRepoName   = "GITHUB_REPO_NAME"
	KeyGitHubPrivate    = "GITHUB_PRIVATE"
	KeyAddr             = "CODEBOT_ADDR"
	KeyAllowedOrigins   = "CODEBOT_ALLOWED_ORIGINS"
	KeyDBPath           = "CODEBOT_DB_PATH"
	KeyProjectPath      = "CODEBOT_PROJECT_PATH"
	KeyMinScore         = "CODEBOT_MIN_SCORE"
	KeyMaxFiles         = "CODEBOT_MAX_FILES"
	KeyLogLevel         = "CODEBOT_LOG_LEVEL"
	KeyGitTimeout       = "CODEBOT_GIT_TIMEOUT"
	KeyTelemetryEnabled = "TELEMETRY_ENABLED"
	KeyOTLPEndpoint     = "OTLP_ENDPOINT"
)

// Config holds the configuration for CodeBot
type Config struct {
	// LLM
	LLMProvider     string
	LLMModel        string // Empty selects the provider's default model
	GeminiAPIKey    string
	AnthropicAPIKey string
	LLMMaxRetries   int

	// Publishing. Pushing is enabled only when both token and username are set
	GitHubToken    string
	GitHubUsername string
	GitHubRepoName string
	GitHubPrivate  bool

	// Server
	Addr        string
	DBPath      string
	ProjectPath string

	// AllowedOrigins are the browser origins, besides the server's own, that may call the API with credentials
	AllowedOrigins []string

	// Analysis
	MinScore float64
	MaxFiles int

	LogLevel   string
	GitTimeout time.Duration

	TelemetryEnabled bool
	OTLPEndpoint     string
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLLMProvider, ProviderGemini)
	v.SetDefault(KeyLLMMaxRetries, 2)
	v.SetDefault(KeyGitHubRepoName, "codebot-fixes")
	v.SetDefault(KeyGitHubPrivate, true)
	v.SetDefault(KeyAddr, ":8000")
	v.SetDefault(KeyAllowedOrigins, "http://localhost:3000")
	v.SetDefault(KeyDBPath, "codebot.db")
	v.SetDefault(KeyProjectPath, ".")
	v.SetDefault(KeyMinScore, 0.3)
	v.SetDefault(KeyMaxFiles, 3)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyGitTimeout, time.Minute)
	v.SetDefault(KeyTelemetryEnabled, false)
}

// LoadDotEnv loads a .env file from the working directory into the process environment. It returns false when there
// is no file to load, which is not an error
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads configuration from v. Environment variables are bound automatically; configFile, if not empty, is read
// first and overridden by the environment
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
			}
		}
	}

	cfg := &Config{
		LLMProvider:      strings.ToLower(strings.TrimSpace(v.GetString(KeyLLMProvider))),
		LLMModel:         v.GetString(KeyLLMModel),
		GeminiAPIKey:     v.GetString(KeyGeminiAPIKey),
		AnthropicAPIKey:  v.GetString(KeyAnthropicAPIKey),
		LLMMaxRetries:    v.GetInt(KeyLLMMaxRetries),
		GitHubToken:      v.GetString(KeyGitHubToken),
		GitHubUsername:   v.GetString(KeyGitHubUsername),
		GitHubRepoName:   v.GetString(KeyGitHubRepoName),
		GitHubPrivate:    v.GetBool(KeyGitHubPrivate),
		Addr:             v.GetString(KeyAddr),
		DBPath:           v.GetString(KeyDBPath),
		ProjectPath:      v.GetString(KeyProjectPath),
		AllowedOrigins:   splitList(v.GetStringSlice(KeyAllowedOrigins)),
		MinScore:         v.GetFloat64(KeyMinScore),
		MaxFiles:         v.GetInt(KeyMaxFiles),
		LogLevel:         v.GetString(KeyLogLevel),
		GitTimeout:       v.GetDuration(KeyGitTimeout),
		TelemetryEnabled: v.GetBool(KeyTelemetryEnabled),
		OTLPEndpoint:     v.GetString(KeyOTLPEndpoint),
	}

	if cfg.LLMMaxRetries < 0 {
		return nil, fmt.Errorf("%s must not be negative", KeyLLMMaxRetries)
	}
	if cfg.MinScore < 0 || cfg.MinScore > 1 {
		return nil, fmt.Errorf("%s must be between 0 and 1, got %v", KeyMinScore, cfg.MinScore)
	}
	if cfg.MaxFiles <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %d", KeyMaxFiles, cfg.MaxFiles)
	}
	return cfg, nil
}

// splitList flattens comma separated entries. The environment supplies one string, a config file may supply a list
func splitList(values []string) []string {
	list := []string{}
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	}
	return list
}

// Validate checks that the configuration required by the fix workflow is present
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("missing required environment variable: %s", KeyGeminiAPIKey)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("missing required environment variable: %s", KeyAnthropicAPIKey)
		}
	default:
		return fmt.Errorf("unknown %s %q, expected %q or %q", KeyLLMProvider, c.LLMProvider, ProviderGemini, ProviderAnthropic)
	}
	return nil
}

// PublishingEnabled reports whether committed fixes should be pushed to GitHub
func (c *Config) PublishingEnabled() bool {
	return c.GitHubToken != "" && c.GitHubUsername != ""
}
