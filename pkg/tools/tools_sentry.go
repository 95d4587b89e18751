package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// SentryAPI is the subset of the Sentry client used by the tools.
type SentryAPI interface {
	ListIssues(ctx context.Context, project string) (string, error)
	GetIssue(ctx context.Context, issueID string) (string, error)
	ListTeamMembers(ctx context.Context, team string) (string, error)
	ListProjectTeams(ctx context.Context, project string) (string, error)
}

func stringProperty(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
		"minLength":   1,
		"pattern":     `\S`,
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

type listIssuesTool struct {
	ctx Context
}

func (t *listIssuesTool) name() Name { return SentryListIssues }

func (t *listIssuesTool) definition() Definition {
	return Definition{
		Name:        SentryListIssues,
		Description: "Returns a formatted string with a list of issues for a given project in Sentry",
		Parameters: objectSchema(map[string]any{
			"project": stringProperty("Sentry project slug."),
		}, "project"),
	}
}

func (t *listIssuesTool) execute(ctx context.Context, argText json.RawMessage) (string, error) {
	var args struct {
		Project string `json:"project"`
	}
	if err := json.Unmarshal(argText, &args); err != nil {
		return "", err
	}
	t.ctx.debug("sentry_list_issues", map[string]any{"project": args.Project})
	return t.ctx.Sentry.ListIssues(ctx, strings.TrimSpace(args.Project))
}

type getIssueTool struct {
	ctx Context
}

func (t *getIssueTool) name() Name { return SentryGetIssue }

func (t *getIssueTool) definition() Definition {
	return Definition{
		Name:        SentryGetIssue,
		Description: "Retrieve detailed information about a specific issue from a Sentry project.",
		Parameters: objectSchema(map[string]any{
			"issue_id": map[string]any{
				"type":        []string{"integer", "string"},
				"description": "Numeric Sentry issue ID.",
			},
		}, "issue_id"),
	}
}

func (t *getIssueTool) execute(ctx context.Context, argText json.RawMessage) (string, error) {
	var args struct {
		IssueID any `json:"issue_id"`
	}
	dec := json.NewDecoder(bytes.NewReader(argText))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return "", err
	}

	var raw string
	switch v := args.IssueID.(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = v
	default:
		raw = fmt.Sprint(v)
	}
	t.ctx.debug("sentry_get_issue", map[string]any{"issue_id": raw})
	return t.ctx.Sentry.GetIssue(ctx, raw)
}

type listUsersTool struct {
	ctx Context
}

func (t *listUsersTool) name() Name { return SentryListUsers }

func (t *listUsersTool) definition() Definition {
	return Definition{
		Name:        SentryListUsers,
		Description: "Returns a formatted string with a list of users in a specific Sentry team",
		Parameters: objectSchema(map[string]any{
			"team_slug": stringProperty("Sentry team slug."),
		}, "team_slug"),
	}
}

func (t *listUsersTool) execute(ctx context.Context, argText json.RawMessage) (string, error) {
	var args struct {
		TeamSlug string `json:"team_slug"`
	}
	if err := json.Unmarshal(argText, &args); err != nil {
		return "", err
	}
	t.ctx.debug("sentry_list_users", map[string]any{"team_slug": args.TeamSlug})
	return t.ctx.Sentry.ListTeamMembers(ctx, strings.TrimSpace(args.TeamSlug))
}

type listProjectTeamsTool struct {
	ctx Context
}

func (t *listProjectTeamsTool) name() Name { return SentryListProjectTeams }

func (t *listProjectTeamsTool) definition() Definition {
	return Definition{
		Name:        SentryListProjectTeams,
		Description: "Returns a formatted string with a list of teams associated with a given project in Sentry",
		Parameters: objectSchema(map[string]any{
			"project": stringProperty("Sentry project slug."),
		}, "project"),
	}
}

func (t *listProjectTeamsTool) execute(ctx context.Context, argText json.RawMessage) (string, error) {
	var args struct {
		Project string `json:"project"`
	}
	if err := json.Unmarshal(argText, &args); err != nil {
		return "", err
	}
	t.ctx.debug("sentry_list_project_teams", map[string]any{"project": args.Project})
	return t.ctx.Sentry.ListProjectTeams(ctx, strings.TrimSpace(args.Project))
}
