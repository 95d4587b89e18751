package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	DefaultAnthropicModel = "claude-3-5-sonnet-latest"
	DefaultSentryURL      = "http://127.0.0.1:9000"
	DefaultOrganization   = "sentry"
	DefaultAgentName      = "Sentry Agent"
	DefaultInstructions   = "You are a helpful assistant."
)

var (
	ErrMissingAPIKey    = errors.New("API key is not set")
	ErrMissingModel     = errors.New("model is not set")
	ErrUnknownProvider  = errors.New("unknown model provider")
	ErrMissingAuthToken = errors.New("SENTRY_AUTH_TOKEN is not set")
)

// Config holds all runtime configuration for the agent.
type Config struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"-"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int64   `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	MaxRetries  int     `yaml:"max_retries"`
	Verbose     bool    `yaml:"verbose"`

	AgentName    string `yaml:"agent_name"`
	Instructions string `yaml:"instructions"`

	Sentry SentryConfig `yaml:"sentry"`
}

// SentryConfig describes how to reach the Sentry REST API.
type SentryConfig struct {
	URL          string        `yaml:"url"`
	Organization string        `yaml:"organization"`
	AuthToken    string        `yaml:"auth_token"`
	Timeout      time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a baseline configuration without side effects.
func DefaultConfig() Config {
	return Config{
		Provider:     ProviderAnthropic,
		MaxTokens:    1024,
		Temperature:  0,
		MaxRetries:   1,
		AgentName:    DefaultAgentName,
		Instructions: DefaultInstructions,
		Sentry: SentryConfig{
			URL:          DefaultSentryURL,
			Organization: DefaultOrganization,
			Timeout:      30 * time.Second,
		},
	}
}

// LoadFile overlays the YAML document at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. lookup is usually os.LookupEnv.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) Config {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get("AGENT_PROVIDER"); ok {
		cfg.Provider = v
	}
	if v, ok := get("SENTRY_HTTP_URL"); ok {
		cfg.Sentry.URL = v
	}
	if v, ok := get("SENTRY_ORGANIZATION_SLUG"); ok {
		cfg.Sentry.Organization = v
	}
	if v, ok := get("SENTRY_AUTH_TOKEN"); ok {
		cfg.Sentry.AuthToken = v
	}
	if v, ok := get("AGENT_MAX_TOKENS"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxTokens = n
		}
	}

	prefix := "ANTHROPIC"
	if strings.EqualFold(strings.TrimSpace(cfg.Provider), ProviderOpenAI) {
		prefix = "OPENAI"
	}
	if v, ok := get(prefix + "_API_KEY"); ok {
		cfg.APIKey = v
	}
	if v, ok := get(prefix + "_BASE_URL"); ok {
		cfg.BaseURL = v
	}
	if v, ok := get(prefix + "_MODEL"); ok {
		cfg.Model = v
	}
	return cfg
}

// Normalize sanitizes configuration values and applies defaults.
func Normalize(cfg Config) Config {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = ProviderAnthropic
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" && cfg.Provider == ProviderAnthropic {
		cfg.Model = DefaultAnthropicModel
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.AgentName = strings.TrimSpace(cfg.AgentName)
	if cfg.AgentName == "" {
		cfg.AgentName = DefaultAgentName
	}
	if strings.TrimSpace(cfg.Instructions) == "" {
		cfg.Instructions = DefaultInstructions
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	cfg.Sentry.URL = strings.TrimRight(strings.TrimSpace(cfg.Sentry.URL), "/")
	if cfg.Sentry.URL == "" {
		cfg.Sentry.URL = DefaultSentryURL
	}
	cfg.Sentry.Organization = strings.TrimSpace(cfg.Sentry.Organization)
	if cfg.Sentry.Organization == "" {
		cfg.Sentry.Organization = DefaultOrganization
	}
	cfg.Sentry.AuthToken = strings.TrimSpace(cfg.Sentry.AuthToken)
	if cfg.Sentry.Timeout < 0 {
		cfg.Sentry.Timeout = 0
	}
	return cfg
}

// Validate reports configuration that prevents the agent from starting.
// A missing Sentry token is not fatal; see Warnings.
func Validate(cfg Config) error {
	switch cfg.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("%s: %w", cfg.Provider, ErrMissingAPIKey)
	}
	if cfg.Model == "" {
		return fmt.Errorf("%s: %w", cfg.Provider, ErrMissingModel)
	}
	return nil
}

// Warnings lists non-fatal configuration problems to surface once at startup.
func Warnings(cfg Config) []error {
	var out []error
	if cfg.Sentry.AuthToken == "" {
		out = append(out, ErrMissingAuthToken)
	}
	return out
}
