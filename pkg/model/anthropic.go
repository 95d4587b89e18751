package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	configpkg "github.com/minhyannv/sentry-agent-go/pkg/config"
	"github.com/minhyannv/sentry-agent-go/pkg/tools"
)

// MessagesClient captures the subset of the Anthropic SDK used by the adapter.
// It is satisfied by *anthropic.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...anthropicoption.RequestOption) (*anthropic.Message, error)
}

// Anthropic implements Model on top of the Claude Messages API.
type Anthropic struct {
	msg         MessagesClient
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropic wraps msg. model and a positive maxTokens are required.
func NewAnthropic(msg MessagesClient, model string, maxTokens int64, temperature float64) (*Anthropic, error) {
	if msg == nil {
		return nil, errors.New("anthropic client is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, configpkg.ErrMissingModel
	}
	if maxTokens <= 0 {
		return nil, errors.New("anthropic: max_tokens must be positive")
	}
	return &Anthropic{msg: msg, model: model, maxTokens: maxTokens, temperature: temperature}, nil
}

// NewAnthropicFromConfig builds an SDK client from cfg. The SDK owns the retry
// policy; cfg.MaxRetries is passed through.
func NewAnthropicFromConfig(cfg configpkg.Config) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", configpkg.ErrMissingAPIKey)
	}
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return NewAnthropic(&client.Messages, cfg.Model, cfg.MaxTokens, cfg.Temperature)
}

// Complete sends one Messages.New request.
func (a *Anthropic) Complete(ctx context.Context, req Request) (Response, error) {
	params, err := a.params(req)
	if err != nil {
		return Response{}, err
	}
	msg, err := a.msg.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic messages.new: %w", err)
	}
	return translateAnthropic(msg)
}

func (a *Anthropic) params(req Request) (anthropic.MessageNewParams, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return anthropic.MessageNewParams{}, errors.New("anthropic: prompt is required")
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   a.maxTokens,
		Temperature: anthropic.Float(a.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	toolParams, err := encodeAnthropicTools(req.Tools)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	if len(toolParams) > 0 {
		params.Tools = toolParams
	}
	return params, nil
}

func encodeAnthropicTools(defs []tools.Definition) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema, err := anthropicInputSchema(def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("anthropic: encode schema for %s: %w", def.Name, err)
		}
		u := anthropic.ToolUnionParamOfTool(schema, string(def.Name))
		if u.OfTool != nil && def.Description != "" {
			u.OfTool.Description = anthropic.String(def.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

// anthropicInputSchema round-trips the schema through JSON so nested Go
// values become plain JSON types.
func anthropicInputSchema(params map[string]any) (anthropic.ToolInputSchemaParam, error) {
	if len(params) == 0 {
		return anthropic.ToolInputSchemaParam{}, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return anthropic.ToolInputSchemaParam{}, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return anthropic.ToolInputSchemaParam{}, err
	}
	return anthropic.ToolInputSchemaParam{ExtraFields: m}, nil
}

func translateAnthropic(msg *anthropic.Message) (Response, error) {
	if msg == nil {
		return Response{}, errors.New("anthropic: response message is nil")
	}
	var (
		resp  Response
		texts []string
	)
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				texts = append(texts, block.Text)
			}
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, tools.Call{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: json.RawMessage(block.Input),
			})
		}
	}
	resp.Text = strings.Join(texts, "\n")
	resp.StopReason = string(msg.StopReason)
	return resp, nil
}
