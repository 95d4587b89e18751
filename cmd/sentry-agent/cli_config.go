package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	configpkg "github.com/minhyannv/sentry-agent-go/pkg/config"
)

// parseCLIConfig resolves defaults, an optional YAML file, the environment and
// flags, in increasing order of precedence.
func parseCLIConfig(args []string, lookup func(string) (string, bool), errOut io.Writer) (configpkg.Config, error) {
	defaults := configpkg.DefaultConfig()

	fs := flag.NewFlagSet("sentry-agent", flag.ContinueOnError)
	if errOut != nil {
		fs.SetOutput(errOut)
	}
	configFile := fs.String("config", "", "Optional YAML config file")
	provider := fs.String("provider", defaults.Provider, "Model provider: anthropic or openai")
	modelID := fs.String("model", "", "Model identifier (defaults to the provider's *_MODEL env var)")
	maxTokens := fs.Int64("max_tokens", defaults.MaxTokens, "Max tokens per model reply")
	maxRetries := fs.Int("max_retries", defaults.MaxRetries, "Retries on model request failures")
	sentryURL := fs.String("sentry_url", defaults.Sentry.URL, "Sentry base URL (overrides SENTRY_HTTP_URL)")
	sentryOrg := fs.String("sentry_org", defaults.Sentry.Organization, "Sentry organization slug (overrides SENTRY_ORGANIZATION_SLUG)")
	verbose := fs.Bool("verbose", defaults.Verbose, "Verbose request and tool-call logging")
	if err := fs.Parse(args); err != nil {
		return configpkg.Config{}, err
	}
	if fs.NArg() > 0 {
		return configpkg.Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg := defaults
	if path := strings.TrimSpace(*configFile); path != "" {
		var err error
		if cfg, err = configpkg.LoadFile(cfg, path); err != nil {
			return configpkg.Config{}, err
		}
	}

	// The provider decides which *_API_KEY the environment overlay reads, so an
	// explicit -provider must be known before it runs.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["provider"] {
		cfg.Provider = *provider
		lookup = hideEnv(lookup, "AGENT_PROVIDER")
	}
	cfg = configpkg.ApplyEnv(cfg, lookup)

	if set["model"] {
		cfg.Model = *modelID
	}
	if set["max_tokens"] {
		cfg.MaxTokens = *maxTokens
	}
	if set["max_retries"] {
		cfg.MaxRetries = *maxRetries
	}
	if set["sentry_url"] {
		cfg.Sentry.URL = *sentryURL
	}
	if set["sentry_org"] {
		cfg.Sentry.Organization = *sentryOrg
	}
	if set["verbose"] {
		cfg.Verbose = *verbose
	}
	return configpkg.Normalize(cfg), nil
}

// hideEnv wraps lookup so that key reads as unset.
func hideEnv(lookup func(string) (string, bool), key string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		if k == key {
			return "", false
		}
		return lookup(k)
	}
}
