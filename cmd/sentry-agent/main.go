// Package main provides the interactive Sentry agent CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/minhyannv/sentry-agent-go/pkg/agent"
	configpkg "github.com/minhyannv/sentry-agent-go/pkg/config"
	loggerpkg "github.com/minhyannv/sentry-agent-go/pkg/logger"
	"github.com/minhyannv/sentry-agent-go/pkg/model"
	"github.com/minhyannv/sentry-agent-go/pkg/sentry"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg, err := parseCLIConfig(os.Args[1:], os.LookupEnv, os.Stderr)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if err := configpkg.Validate(cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	appLogger := loggerpkg.NewWriterLogger(os.Stderr)
	for _, warning := range configpkg.Warnings(cfg) {
		loggerpkg.Warn(appLogger, warning.Error(), loggerpkg.Fields{"effect": "sentry tools will return an error"})
	}
	loggerpkg.Debug(cfg.Verbose, appLogger, "config resolved", loggerpkg.Fields{
		"provider":     cfg.Provider,
		"model":        cfg.Model,
		"base_url":     cfg.BaseURL,
		"max_tokens":   cfg.MaxTokens,
		"max_retries":  cfg.MaxRetries,
		"sentry_url":   cfg.Sentry.URL,
		"organization": cfg.Sentry.Organization,
	})

	llm, err := model.New(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	client := sentry.NewClient(cfg.Sentry, sentry.WithLogger(appLogger, cfg.Verbose))
	defer client.Close()

	sentryAgent, err := agent.NewSentry(cfg, client, agent.WithLogger(appLogger, cfg.Verbose))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runREPL(ctx, []*agent.Agent{sentryAgent}, llm, replOptions{
		Verbose: cfg.Verbose,
		Logger:  appLogger,
	}, os.Stdin, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
