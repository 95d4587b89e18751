// Package agent binds an instruction prompt and a fixed tool set to a model
// and answers one query at a time with at most one tool execution.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	loggerpkg "github.com/minhyannv/sentry-agent-go/pkg/logger"
	"github.com/minhyannv/sentry-agent-go/pkg/model"
	"github.com/minhyannv/sentry-agent-go/pkg/tools"
)

// Agent is immutable after New.
type Agent struct {
	name         string
	instructions string
	tools        *tools.Registry

	logger    loggerpkg.Logger
	verbose   bool
	tracer    trace.Tracer
	toolCalls metric.Int64Counter
}

// New builds an agent. registry may be nil, in which case the model is
// offered no tools.
func New(name, instructions string, registry *tools.Registry, opts ...Option) (*Agent, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("agent name is required")
	}
	deps := resolveDeps(opts)

	counter, err := deps.meter.Meter(instrumentationName).Int64Counter(
		"agent.tool_calls",
		metric.WithDescription("Tool executions by tool name and outcome."),
	)
	if err != nil {
		return nil, fmt.Errorf("create tool call counter: %w", err)
	}

	return &Agent{
		name:         name,
		instructions: instructions,
		tools:        registry,
		logger:       deps.logger,
		verbose:      deps.verbose,
		tracer:       deps.tracer.Tracer(instrumentationName),
		toolCalls:    counter,
	}, nil
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Instructions returns the system prompt.
func (a *Agent) Instructions() string { return a.instructions }

// Tools returns the definitions offered to the model.
func (a *Agent) Tools() []tools.Definition {
	if a.tools == nil {
		return nil
	}
	return a.tools.Definitions()
}

func (a *Agent) String() string {
	return fmt.Sprintf("Agent: %s\n\nInstructions:\n%s", a.name, a.instructions)
}

// Answer sends query to m and returns the text to show the user: the output of
// the first requested tool call, or the model's own text when it requested
// none. Additional tool calls are never executed. Tool failures are part of
// the returned text; only model failures are returned as errors.
func (a *Agent) Answer(ctx context.Context, m model.Model, query string) (string, error) {
	if m == nil {
		return "", errors.New("model is required")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("query is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	log := loggerpkg.With(a.logger, loggerpkg.Fields{
		"agent":    a.name,
		"query_id": uuid.NewString(),
	})
	ctx, span := a.tracer.Start(ctx, "agent.invoke", trace.WithAttributes(
		attribute.String("agent.name", a.name),
	))
	defer span.End()

	defs := a.Tools()
	loggerpkg.Debug(a.verbose, log, "sending query", loggerpkg.Fields{"bytes": len(query), "tools": len(defs)})
	resp, err := m.Complete(ctx, model.Request{
		System: a.instructions,
		Prompt: query,
		Tools:  defs,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model request failed")
		loggerpkg.Error(log, "model request failed", loggerpkg.Fields{"error": err.Error()})
		return "", fmt.Errorf("model request: %w", err)
	}
	loggerpkg.Debug(a.verbose, log, "model replied", loggerpkg.Fields{
		"stop_reason": resp.StopReason,
		"tool_calls":  len(resp.ToolCalls),
	})

	if len(resp.ToolCalls) == 0 {
		return resp.Text, nil
	}
	if len(resp.ToolCalls) > 1 {
		ignored := make([]string, 0, len(resp.ToolCalls)-1)
		for _, c := range resp.ToolCalls[1:] {
			ignored = append(ignored, c.Name)
		}
		loggerpkg.Warn(log, "ignoring extra tool calls", loggerpkg.Fields{"ignored": ignored})
	}

	result := a.execute(ctx, log, resp.ToolCalls[0])
	return result.Text(), nil
}

// Invoke runs Answer and prints the result to out.
func (a *Agent) Invoke(ctx context.Context, m model.Model, query string, out io.Writer) error {
	text, err := a.Answer(ctx, m, query)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err = io.WriteString(out, text)
	return err
}

func (a *Agent) execute(ctx context.Context, log loggerpkg.Logger, call tools.Call) tools.Result {
	ctx, span := a.tracer.Start(ctx, "agent.tool", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	))
	defer span.End()

	var result tools.Result
	if a.tools == nil {
		result = tools.Result{Tool: call.Name, Err: fmt.Errorf("unknown tool: %s", call.Name)}
	} else {
		result = a.tools.Execute(ctx, call)
	}

	outcome := "ok"
	if result.Err != nil {
		outcome = "error"
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, "tool failed")
		loggerpkg.Warn(log, "tool failed", loggerpkg.Fields{"tool": call.Name, "error": result.Err.Error()})
	} else {
		loggerpkg.Debug(a.verbose, log, "tool succeeded", loggerpkg.Fields{"tool": call.Name, "bytes": len(result.Output)})
	}
	a.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", call.Name),
		attribute.String("outcome", outcome),
	))
	return result
}
