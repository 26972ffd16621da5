package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FAL_API_KEY", "fal-test")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.ListenAddr)
	assert.Equal(t, "designbot.db", c.DatabasePath)
	assert.Equal(t, "https://api.telegram.org", c.Telegram.APIBaseURL)
	assert.Equal(t, "/telegram/webhook", c.Telegram.WebhookPath)
	assert.Equal(t, "gpt-4o-mini", c.OpenAI.Model)
	assert.Equal(t, "https://fal.run", c.Synthesis.BaseURL)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "json", c.Log.Encoding)

	assert.Equal(t, "123:abc", c.Telegram.Token)
	assert.Equal(t, "sk-test", c.OpenAI.APIKey)
	assert.Equal(t, "fal-test", c.Synthesis.APIKey)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen_addr: ":9090"
database_path: /var/lib/designbot.db
openai:
  model: gpt-4o
log:
  level: debug
  encoding: console
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.ListenAddr)
	assert.Equal(t, "/var/lib/designbot.db", c.DatabasePath)
	assert.Equal(t, "gpt-4o", c.OpenAI.Model)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "console", c.Log.Encoding)

	// Untouched sections keep their defaults.
	assert.Equal(t, "https://fal.run", c.Synthesis.BaseURL)
}

func TestLoadSecretsComeFromEnvOnly(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  api_base_url: https://tg.local\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://tg.local", c.Telegram.APIBaseURL)
	assert.Equal(t, "123:abc", c.Telegram.Token)
}

func TestLoadMissingSecrets(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantErr error
	}{
		{"bot token", "TELEGRAM_BOT_TOKEN", ErrMissingBotToken},
		{"openai key", "OPENAI_API_KEY", ErrMissingOpenAIKey},
		{"synthesis key", "FAL_API_KEY", ErrMissingSynthesisKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Load("")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadRejectsBadLogSettings(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log level")
}

func TestLoadMissingFile(t *testing.T) {
	setRequiredEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}
