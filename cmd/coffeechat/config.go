package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/anthann/coffeechat/pkg/model"
	"github.com/anthann/coffeechat/pkg/model/anthropic"
	"github.com/anthann/coffeechat/pkg/model/openai"
)

const (
	providerAnthropic = "anthropic"
	providerOpenAI    = "openai"

	defaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultOpenAIModel    = "gpt-4o-mini"
)

// appConfig is read from COFFEECHAT_* environment variables.
type appConfig struct {
	Provider     string `envconfig:"PROVIDER" default:"anthropic"`
	APIKey       string `envconfig:"API_KEY"`
	Model        string `envconfig:"MODEL"`
	BaseURL      string `envconfig:"BASE_URL"`
	MaxTokens    int    `envconfig:"MAX_TOKENS" default:"2048"`
	SettingsPath string `envconfig:"SETTINGS_PATH"`
	Addr         string `envconfig:"ADDR" default:"127.0.0.1:8080"`
	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`
	Env          string `envconfig:"ENV" default:"development"`
}

func loadConfig() (appConfig, error) {
	var cfg appConfig
	if err := envconfig.Process("coffeechat", &cfg); err != nil {
		return appConfig{}, fmt.Errorf("load environment config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider != providerAnthropic && cfg.Provider != providerOpenAI {
		return appConfig{}, fmt.Errorf("unknown provider %q (want %s or %s)", cfg.Provider, providerAnthropic, providerOpenAI)
	}
	if cfg.Model == "" {
		switch cfg.Provider {
		case providerAnthropic:
			cfg.Model = defaultAnthropicModel
		case providerOpenAI:
			cfg.Model = defaultOpenAIModel
		}
	}
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = defaultSettingsPath()
	}
	return cfg, nil
}

func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "coffeechat-settings.yaml")
	}
	return filepath.Join(home, ".coffeechat", "settings.yaml")
}

func buildRuntime(cfg appConfig) model.Runtime {
	switch cfg.Provider {
	case providerOpenAI:
		return openai.NewRuntimeWithBaseURL(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens)
	default:
		return anthropic.NewRuntimeWithBaseURL(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens)
	}
}
