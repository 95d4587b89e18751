package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	loggerpkg "github.com/minhyannv/sentry-agent-go/pkg/logger"
)

// Name identifies one of the built-in tools.
type Name string

const (
	SentryListIssues       Name = "sentry_list_issues"
	SentryGetIssue         Name = "sentry_get_issue"
	SentryListUsers        Name = "sentry_list_users"
	SentryListProjectTeams Name = "sentry_list_project_teams"
)

// Definition is the provider-neutral description of a tool advertised to a model.
type Definition struct {
	Name        Name
	Description string
	// Parameters is a JSON Schema object describing the tool arguments.
	Parameters map[string]any
}

// Call is a model's request to run one tool.
type Call struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Result is the outcome of executing a Call.
type Result struct {
	Tool   string
	Output string
	Err    error
}

// Text renders the result for the console. Failures become "Error: ..." lines.
func (r Result) Text() string {
	if r.Err != nil {
		return "Error: " + r.Err.Error()
	}
	return r.Output
}

type tool interface {
	name() Name
	definition() Definition
	execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Context carries the dependencies shared by every tool.
type Context struct {
	Sentry  SentryAPI
	Verbose bool
	Logger  loggerpkg.Logger
}

func (c Context) debug(msg string, obj any) {
	loggerpkg.Debug(c.Verbose, c.Logger, msg, obj)
}

// Registry holds registered tools and handles execution.
type Registry struct {
	registry map[Name]tool
	schemas  map[Name]*jsonschema.Schema
	defs     []Definition
	ctx      Context
}

// New builds a registry with the built-in Sentry tools.
func New(ctx Context) (*Registry, error) {
	if ctx.Logger == nil {
		ctx.Logger = loggerpkg.NopLogger{}
	}
	if ctx.Sentry == nil {
		return nil, errors.New("sentry client is required")
	}
	return newRegistry(ctx,
		&listIssuesTool{ctx: ctx},
		&getIssueTool{ctx: ctx},
		&listUsersTool{ctx: ctx},
		&listProjectTeamsTool{ctx: ctx},
	)
}

func newRegistry(ctx Context, impls ...tool) (*Registry, error) {
	r := &Registry{
		registry: make(map[Name]tool, len(impls)),
		schemas:  make(map[Name]*jsonschema.Schema, len(impls)),
		ctx:      ctx,
	}
	for _, impl := range impls {
		if err := r.register(impl); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(impl tool) error {
	name := impl.name()
	if _, dup := r.registry[name]; dup {
		return fmt.Errorf("duplicate tool: %s", name)
	}
	def := impl.definition()
	schema, err := compileSchema(name, def.Parameters)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", name, err)
	}
	r.registry[name] = impl
	r.schemas[name] = schema
	r.defs = append(r.defs, def)
	r.ctx.debug("registered tool", loggerpkg.Fields{"tool": name})
	return nil
}

// Definitions returns the tool definitions in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Execute validates call arguments against the tool schema and runs the tool.
func (r *Registry) Execute(ctx context.Context, call Call) Result {
	res := Result{Tool: call.Name}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	name := Name(call.Name)
	impl, ok := r.registry[name]
	if !ok {
		res.Err = fmt.Errorf("unknown tool: %s", call.Name)
		return res
	}

	args := call.Arguments
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	if err := validateArgs(r.schemas[name], args); err != nil {
		r.ctx.debug("tool arguments rejected", loggerpkg.Fields{"tool": name, "error": err.Error()})
		res.Err = fmt.Errorf("invalid arguments for %s: %w", name, err)
		return res
	}

	r.ctx.debug("executing tool", loggerpkg.Fields{"tool": name, "arguments": string(args)})
	res.Output, res.Err = impl.execute(ctx, args)
	return res
}

func compileSchema(name Name, params map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	url := string(name) + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

func validateArgs(schema *jsonschema.Schema, args json.RawMessage) error {
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(args))
	if err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return errors.New(flattenValidation(err))
	}
	return nil
}

// flattenValidation folds the multi-line validation report onto one line.
func flattenValidation(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line == "" || strings.HasPrefix(line, "jsonschema validation failed") {
			continue
		}
		parts = append(parts, line)
	}
	if len(parts) == 0 {
		return err.Error()
	}
	return strings.Join(parts, "; ")
}
