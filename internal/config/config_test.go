package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	require.Equal(t, ProviderGemini, cfg.LLMProvider)
	require.Equal(t, 0.3, cfg.MinScore)
	require.Equal(t, 3, cfg.MaxFiles)
	require.Equal(t, ":8000", cfg.Addr)
	require.Equal(t, time.Minute, cfg.GitTimeout)
	require.True(t, cfg.GitHubPrivate)
	require.Equal(t, 2, cfg.LLMMaxRetries)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv(KeyAllowedOrigins, "https://app.example.com, https://admin.example.com,")
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)

	path := filepath.Join(t.TempDir(), "codebot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("CODEBOT_ALLOWED_ORIGINS:\n  - https://ui.example.com\n"), 0o644))
	require.NoError(t, os.Unsetenv(KeyAllowedOrigins))
	cfg, err = Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, []string{"https://ui.example.com"}, cfg.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(KeyLLMProvider, "Anthropic")
	t.Setenv(KeyAnthropicAPIKey, "sk-test")
	t.Setenv(KeyMinScore, "0.5")
	t.Setenv(KeyGitTimeout, "10s")
	t.Setenv(KeyGitHubToken, "tok")
	t.Setenv(KeyGitHubUsername, "alice")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, ProviderAnthropic, cfg.LLMProvider)
	require.Equal(t, 0.5, cfg.MinScore)
	require.Equal(t, 10*time.Second, cfg.GitTimeout)
	require.NoError(t, cfg.Validate())
	require.True(t, cfg.PublishingEnabled())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codebot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("CODEBOT_MAX_FILES: 5\nLLM_MODEL: gemini-1.5-pro\n"), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.MaxFiles)
	require.Equal(t, "gemini-1.5-pro", cfg.LLMModel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv(KeyMinScore, "1.5")
	_, err := Load(viper.New(), "")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{LLMProvider: ProviderGemini}
	require.ErrorContains(t, cfg.Validate(), KeyGeminiAPIKey)

	cfg.GeminiAPIKey = "key"
	require.NoError(t, cfg.Validate())
	require.False(t, cfg.PublishingEnabled())

	cfg.LLMProvider = "openai"
	require.Error(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	require.False(t, LoadDotEnv())

	require.NoError(t, os.WriteFile(".env", []byte("CODEBOT_DOTENV_TEST=loaded\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("CODEBOT_DOTENV_TEST") })
	require.True(t, LoadDotEnv())
	require.Equal(t, "loaded", os.Getenv("CODEBOT_DOTENV_TEST"))
}
