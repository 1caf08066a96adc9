// Package config loads service configuration from an optional config file
// and the environment. Provider API keys keep their conventional env names
// so existing deployments need no renaming.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"evalcoach/internal/llm"
	"evalcoach/internal/orchestrator"
)

// Config is the full service configuration.
type Config struct {
	Addr           string        `mapstructure:"addr"`
	LogLevel       string        `mapstructure:"log_level"`
	DBPath         string        `mapstructure:"db_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CacheSize      int           `mapstructure:"cache_size"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`

	Gemini ProviderConfig `mapstructure:"gemini"`
	OpenAI ProviderConfig `mapstructure:"openai"`
}

// ProviderConfig holds one LLM backend's key and model selection.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// Configured reports whether at least one provider carries an API key.
func (c Config) Configured() bool {
	return c.Gemini.APIKey != "" || c.OpenAI.APIKey != ""
}

// GeminiClient maps the Gemini section onto the client configuration.
func (c Config) GeminiClient() llm.GeminiConfig {
	return llm.GeminiConfig{
		APIKey:  c.Gemini.APIKey,
		Model:   c.Gemini.Model,
		BaseURL: c.Gemini.BaseURL,
		Timeout: c.RequestTimeout,
	}
}

// OpenAIClient maps the OpenAI section onto the client configuration.
func (c Config) OpenAIClient() llm.OpenAIConfig {
	return llm.OpenAIConfig{
		APIKey:  c.OpenAI.APIKey,
		Model:   c.OpenAI.Model,
		BaseURL: c.OpenAI.BaseURL,
		Timeout: c.RequestTimeout,
	}
}

// Orchestrator maps the shared knobs onto the completion runner config.
func (c Config) Orchestrator() orchestrator.Config {
	return orchestrator.Config{CacheSize: c.CacheSize}
}

// Load reads evalcoach.yaml (working directory or $HOME, optional) and then
// the environment. Env beats file, explicit file beats defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("evalcoach")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")

	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", "evalcoach.db")
	v.SetDefault("request_timeout", 60*time.Second)
	v.SetDefault("cache_size", 128)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("openai.model", "gpt-4.1-mini")

	v.SetEnvPrefix("EVALCOACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional provider env names take precedence over the prefixed ones.
	bindings := map[string][]string{
		"gemini.api_key": {"GOOGLE_GENERATIVE_AI_API_KEY"},
		"gemini.model":   {"GEMINI_MODEL"},
		"openai.api_key": {"OPENAI_API_KEY"},
		"openai.model":   {"OPENAI_MODEL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
