package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minhyannv/sentry-agent-go/pkg/agent"
	loggerpkg "github.com/minhyannv/sentry-agent-go/pkg/logger"
	"github.com/minhyannv/sentry-agent-go/pkg/model"
)

const prompt = "<Triage Agent> Please enter a query.\n<User> "

// replOptions configures REPL behavior.
type replOptions struct {
	Verbose bool
	Logger  loggerpkg.Logger
}

type inputLine struct {
	text string
	err  error
}

// readLines feeds in to the returned channel one line at a time. The next
// line is only read after the previous one was received, so queries never
// overlap.
func readLines(ctx context.Context, in io.Reader) <-chan inputLine {
	lines := make(chan inputLine)
	go func() {
		defer close(lines)
		send := func(l inputLine) bool {
			select {
			case lines <- l:
				return true
			case <-ctx.Done():
				return false
			}
		}
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if !send(inputLine{text: scanner.Text()}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			send(inputLine{err: err})
		}
	}()
	return lines
}

// selectAgent picks the agent for query. Only one agent exists, so the first
// registered agent always handles it.
func selectAgent(agents []*agent.Agent, _ string) *agent.Agent {
	return agents[0]
}

// runREPL reads queries until EOF, a quit command, or ctx is cancelled.
func runREPL(ctx context.Context, agents []*agent.Agent, llm model.Model, opts replOptions, in io.Reader, out io.Writer) error {
	if len(agents) == 0 || agents[0] == nil {
		return errors.New("at least one agent is required")
	}
	if llm == nil {
		return errors.New("model is required")
	}
	if in == nil {
		return errors.New("input reader is required")
	}
	if out == nil {
		out = io.Discard
	}

	loggerpkg.Debug(opts.Verbose, opts.Logger, "repl start", loggerpkg.Fields{"agents": len(agents)})
	printWelcome(out)

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	lines := readLines(readCtx, in)
	for {
		_, _ = fmt.Fprint(out, prompt)

		var line inputLine
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				_, _ = fmt.Fprintln(out)
				return nil
			}
			line = l
		}
		if line.err != nil {
			return fmt.Errorf("read input: %w", line.err)
		}

		input := strings.TrimSpace(line.text)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := handleCommand(input, agents[0], out); quit {
				return nil
			}
			continue
		}

		selected := selectAgent(agents, input)
		if err := selected.Invoke(ctx, llm, input, out); err != nil {
			if ctx.Err() != nil {
				loggerpkg.Info(opts.Logger, "query interrupted", loggerpkg.Fields{"agent": selected.Name()})
				_, _ = fmt.Fprintln(out)
				return nil
			}
			loggerpkg.Debug(opts.Verbose, opts.Logger, "query failed", loggerpkg.Fields{"error": err.Error()})
			_, _ = fmt.Fprintf(out, "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(out)
	}
}

func printWelcome(out io.Writer) {
	_, _ = fmt.Fprintln(out, "=== Sentry Agent - Interactive Mode ===")
	printHelp(out)
}

// handleCommand runs a slash command and reports whether the REPL should exit.
func handleCommand(input string, current *agent.Agent, out io.Writer) bool {
	switch strings.ToLower(input) {
	case "/help", "/h":
		printHelp(out)
	case "/agent":
		_, _ = fmt.Fprintln(out, current.String())
		_, _ = fmt.Fprintln(out)
	case "/tools":
		defs := current.Tools()
		if len(defs) == 0 {
			_, _ = fmt.Fprintln(out, "No tools registered.")
		}
		for _, def := range defs {
			_, _ = fmt.Fprintf(out, "  %s - %s\n", def.Name, def.Description)
		}
		_, _ = fmt.Fprintln(out)
	case "/quit", "/exit", "/q":
		_, _ = fmt.Fprintln(out, "Goodbye!")
		return true
	default:
		_, _ = fmt.Fprintf(out, "Unknown command: %s. Type /help for available commands.\n\n", input)
	}
	return false
}

func printHelp(out io.Writer) {
	_, _ = fmt.Fprintln(out, "Commands:")
	_, _ = fmt.Fprintln(out, "  /help  - Show this help message")
	_, _ = fmt.Fprintln(out, "  /agent - Show the active agent and its instructions")
	_, _ = fmt.Fprintln(out, "  /tools - List the tools the agent can call")
	_, _ = fmt.Fprintln(out, "  /quit  - Exit the program")
	_, _ = fmt.Fprintln(out, "  /exit  - Exit the program")
	_, _ = fmt.Fprintln(out)
}
