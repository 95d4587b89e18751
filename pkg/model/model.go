// Package model adapts chat-completion providers to the single request shape
// the agent needs: one system prompt, one user query, a set of tools, and a
// reply that is either text or tool calls.
package model

import (
	"context"
	"fmt"

	configpkg "github.com/minhyannv/sentry-agent-go/pkg/config"
	"github.com/minhyannv/sentry-agent-go/pkg/tools"
)

// Request is one single-turn completion request.
type Request struct {
	System string
	Prompt string
	Tools  []tools.Definition
}

// Response is the model's reply. ToolCalls preserves the order the model
// produced them in.
type Response struct {
	Text       string
	ToolCalls  []tools.Call
	StopReason string
}

// Model is implemented by every provider adapter.
type Model interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// New builds the adapter selected by cfg.Provider.
func New(cfg configpkg.Config) (Model, error) {
	switch cfg.Provider {
	case configpkg.ProviderAnthropic:
		return NewAnthropicFromConfig(cfg)
	case configpkg.ProviderOpenAI:
		return NewOpenAIFromConfig(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", configpkg.ErrUnknownProvider, cfg.Provider)
	}
}
