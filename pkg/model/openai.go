package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"

	configpkg "github.com/minhyannv/sentry-agent-go/pkg/config"
	"github.com/minhyannv/sentry-agent-go/pkg/tools"
)

// CompletionsClient captures the subset of the OpenAI SDK used by the adapter.
// It is satisfied by *openai.ChatCompletionService.
type CompletionsClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...openaioption.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI implements Model on top of chat completions.
type OpenAI struct {
	completions CompletionsClient
	model       string
	maxTokens   int64
	temperature float64
}

// NewOpenAI wraps completions. model is required.
func NewOpenAI(completions CompletionsClient, model string, maxTokens int64, temperature float64) (*OpenAI, error) {
	if completions == nil {
		return nil, errors.New("openai client is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, configpkg.ErrMissingModel
	}
	return &OpenAI{completions: completions, model: model, maxTokens: maxTokens, temperature: temperature}, nil
}

// NewOpenAIFromConfig builds an SDK client from cfg.
func NewOpenAIFromConfig(cfg configpkg.Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", configpkg.ErrMissingAPIKey)
	}
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(cfg.APIKey),
		openaioption.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return NewOpenAI(&client.Chat.Completions, cfg.Model, cfg.MaxTokens, cfg.Temperature)
}

// Complete performs one chat completion request.
func (o *OpenAI) Complete(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Response{}, errors.New("openai: prompt is required")
	}
	completion, err := o.completions.New(ctx, o.params(req))
	if err != nil {
		return Response{}, fmt.Errorf("openai chat.completions: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return Response{}, errors.New("empty completion choices")
	}

	choice := completion.Choices[0]
	resp := Response{
		Text:       choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}
	for _, call := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, tools.Call{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(call.Function.Arguments),
		})
	}
	return resp, nil
}

func (o *OpenAI) params(req Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    messages,
		Temperature: openai.Float(o.temperature),
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(o.maxTokens)
	}
	if len(req.Tools) > 0 {
		params.Tools = encodeOpenAITools(req.Tools)
		// One tool call per query is all the agent will execute.
		params.ParallelToolCalls = openai.Bool(false)
	}
	return params
}

func encodeOpenAITools(defs []tools.Definition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        string(def.Name),
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.Parameters),
			},
		})
	}
	return out
}
