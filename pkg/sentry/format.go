package sentry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const notAvailable = "N/A"

// framesPath locates the stack frames of the first exception in an event.
const framesPath = "entries.0.data.values.0.stacktrace.frames"

func processError(err error) error {
	return fmt.Errorf("failed to process Sentry response: %w", err)
}

func parseArray(body []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, processError(errors.New("invalid JSON"))
	}
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, processError(fmt.Errorf("expected a JSON array, got %s", res.Type))
	}
	return res.Array(), nil
}

func parseObject(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, processError(errors.New("invalid JSON"))
	}
	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return gjson.Result{}, processError(fmt.Errorf("expected a JSON object, got %s", res.Type))
	}
	return res, nil
}

// required reads path from obj and fails when the key is absent.
func required(obj gjson.Result, path string) (string, error) {
	v := obj.Get(path)
	if !v.Exists() {
		return "", processError(fmt.Errorf("missing key %q", path))
	}
	return v.String(), nil
}

// optional reads path from obj, substituting N/A for absent or null values.
func optional(obj gjson.Result, path string) string {
	v := obj.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return notAvailable
	}
	return v.String()
}

func formatIssueList(body []byte) (string, error) {
	issues, err := parseArray(body)
	if err != nil {
		return "", err
	}
	if len(issues) == 0 {
		return "No issues found.", nil
	}

	var b strings.Builder
	b.WriteString("List of Sentry Issues:\n")
	for _, issue := range issues {
		id, err := required(issue, "id")
		if err != nil {
			return "", err
		}
		title, err := required(issue, "title")
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "ID: %s, Title: %s\n", id, title)
	}
	return b.String(), nil
}

func formatTeamMembers(team string, body []byte) (string, error) {
	users, err := parseArray(body)
	if err != nil {
		return "", err
	}
	if len(users) == 0 {
		return fmt.Sprintf("No users found in team: %s", team), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "List of Sentry Users in team '%s':\n", team)
	for _, user := range users {
		id, err := required(user, "id")
		if err != nil {
			return "", err
		}
		email, err := required(user, "email")
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "ID: %s, Email: %s, Name: %s\n", id, email, optional(user, "name"))
	}
	return b.String(), nil
}

func formatProjectTeams(project string, body []byte) (string, error) {
	teams, err := parseArray(body)
	if err != nil {
		return "", err
	}
	if len(teams) == 0 {
		return fmt.Sprintf("No teams found for project: %s", project), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Teams associated with project '%s':\n", project)
	for _, team := range teams {
		id, err := required(team, "id")
		if err != nil {
			return "", err
		}
		slug, err := required(team, "slug")
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "ID: %s, Slug: %s, Name: %s\n", id, slug, optional(team, "name"))
	}
	return b.String(), nil
}

var issueFields = []struct {
	label string
	path  string
}{
	{"ID", "id"},
	{"Title", "title"},
	{"Level", "level"},
	{"Project", "project.slug"},
	{"First Seen", "firstSeen"},
	{"Last Seen", "lastSeen"},
	{"Count", "count"},
	{"User Count", "userCount"},
	{"URL", "permalink"},
}

func formatIssueDetails(issueBody, eventBody []byte) (string, error) {
	issue, err := parseObject(issueBody)
	if err != nil {
		return "", err
	}
	event, err := parseObject(eventBody)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Issue Details:\n")
	for _, f := range issueFields {
		v, err := required(issue, f.path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s: %s\n", f.label, v)
	}

	eventID, err := required(event, "eventID")
	if err != nil {
		return "", err
	}
	created, err := required(event, "dateCreated")
	if err != nil {
		return "", err
	}
	b.WriteString("\nLatest Event:\n")
	fmt.Fprintf(&b, "Event ID: %s\n", eventID)
	fmt.Fprintf(&b, "Timestamp: %s\n", created)
	fmt.Fprintf(&b, "Release: %s\n", optional(event, "release"))

	b.WriteString("\nTraceback (Last Frame):\n")
	framesValue := event.Get(framesPath)
	if framesValue.Exists() && framesValue.Type != gjson.Null && !framesValue.IsArray() {
		return "", processError(fmt.Errorf("expected %s to be an array, got %s", framesPath, framesValue.Type))
	}
	frames := framesValue.Array()
	if len(frames) == 0 {
		b.WriteString("No traceback available.\n")
		return b.String(), nil
	}

	last := frames[len(frames)-1]
	if !last.IsObject() {
		return "", processError(fmt.Errorf("expected stack frame to be an object, got %s", last.Type))
	}
	fmt.Fprintf(&b, "File: %s\n", optional(last, "filename"))
	fmt.Fprintf(&b, "Line: %s\n", optional(last, "lineNo"))
	fmt.Fprintf(&b, "Function: %s\n", optional(last, "function"))
	b.WriteString("Context:\n")
	frameContext := last.Get("context")
	if frameContext.Exists() && frameContext.Type != gjson.Null && !frameContext.IsArray() {
		return "", processError(fmt.Errorf("expected frame context to be an array, got %s", frameContext.Type))
	}
	for _, line := range frameContext.Array() {
		pair := line.Array()
		if !line.IsArray() || len(pair) != 2 || pair[0].Type != gjson.Number {
			return "", processError(fmt.Errorf("malformed context line %s", line.Raw))
		}
		fmt.Fprintf(&b, "%4d | %s\n", pair[0].Int(), pair[1].String())
	}
	b.WriteString(strings.Repeat("-", 50) + "\n")
	return b.String(), nil
}
