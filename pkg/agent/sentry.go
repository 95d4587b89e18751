package agent

import (
	"fmt"

	configpkg "github.com/minhyannv/sentry-agent-go/pkg/config"
	"github.com/minhyannv/sentry-agent-go/pkg/tools"
)

// NewSentry builds the Sentry agent with the four Sentry tools backed by api.
func NewSentry(cfg configpkg.Config, api tools.SentryAPI, opts ...Option) (*Agent, error) {
	deps := resolveDeps(opts)
	registry, err := tools.New(tools.Context{
		Sentry:  api,
		Verbose: deps.verbose,
		Logger:  deps.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("register sentry tools: %w", err)
	}

	name := cfg.AgentName
	if name == "" {
		name = configpkg.DefaultAgentName
	}
	instructions := cfg.Instructions
	if instructions == "" {
		instructions = configpkg.DefaultInstructions
	}
	return New(name, instructions, registry, opts...)
}
