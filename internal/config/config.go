// Package config loads the bot configuration from a YAML file with
// environment overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr   = ":8080"
	defaultDatabasePath = "designbot.db"
	defaultWebhookPath  = "/telegram/webhook"
	defaultTelegramAPI  = "https://api.telegram.org"
	defaultOpenAIModel  = "gpt-4o-mini"
	defaultSynthesisURL = "https://fal.run"
	defaultLogLevel     = "info"
	defaultLogEncoding  = "json"
)

var (
	ErrMissingBotToken     = errors.New("telegram bot token not set (TELEGRAM_BOT_TOKEN)")
	ErrMissingOpenAIKey    = errors.New("completion provider API key not set (OPENAI_API_KEY)")
	ErrMissingSynthesisKey = errors.New("synthesis provider API key not set (FAL_API_KEY)")
)

type Config struct {
	ListenAddr   string `yaml:"listen_addr"`
	DatabasePath string `yaml:"database_path"`

	Telegram  Telegram  `yaml:"telegram"`
	OpenAI    OpenAI    `yaml:"openai"`
	Synthesis Synthesis `yaml:"synthesis"`
	Log       Log       `yaml:"log"`
}

type Telegram struct {
	// Token is never read from the file; TELEGRAM_BOT_TOKEN only.
	Token       string `yaml:"-"`
	APIBaseURL  string `yaml:"api_base_url"`
	WebhookPath string `yaml:"webhook_path"`
}

type OpenAI struct {
	APIKey  string `yaml:"-"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type Synthesis struct {
	APIKey  string `yaml:"-"`
	BaseURL string `yaml:"base_url"`
}

type Log struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Load reads the YAML file at path (optional; empty path means defaults
// only), applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	c := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	c.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	c.Synthesis.APIKey = os.Getenv("FAL_API_KEY")

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func defaults() *Config {
	return &Config{
		ListenAddr:   defaultListenAddr,
		DatabasePath: defaultDatabasePath,
		Telegram: Telegram{
			APIBaseURL:  defaultTelegramAPI,
			WebhookPath: defaultWebhookPath,
		},
		OpenAI: OpenAI{
			Model: defaultOpenAIModel,
		},
		Synthesis: Synthesis{
			BaseURL: defaultSynthesisURL,
		},
		Log: Log{
			Level:    defaultLogLevel,
			Encoding: defaultLogEncoding,
		},
	}
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return ErrMissingBotToken
	}
	if c.OpenAI.APIKey == "" {
		return ErrMissingOpenAIKey
	}
	if c.Synthesis.APIKey == "" {
		return ErrMissingSynthesisKey
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of: debug, info, warn, error (got %q)", c.Log.Level)
	}
	switch c.Log.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("log encoding must be json or console (got %q)", c.Log.Encoding)
	}
	return nil
}
