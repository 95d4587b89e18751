// Package sentry is a small read-only client for the Sentry REST API. Every
// operation renders its result as human-readable text for the agent to print.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	configpkg "github.com/minhyannv/sentry-agent-go/pkg/config"
	loggerpkg "github.com/minhyannv/sentry-agent-go/pkg/logger"
)

// StatsPeriod is the stats window requested when listing project issues.
const StatsPeriod = "14d"

// maxBodyBytes bounds how much of a single response is read.
const maxBodyBytes int64 = 8 * 1024 * 1024

var (
	// ErrMissingToken is returned by every operation when no auth token is configured.
	//lint:ignore ST1005 shown verbatim to the user as a tool result
	ErrMissingToken = errors.New("Please set SENTRY_AUTH_TOKEN.")
	// ErrInvalidIssueID is wrapped when an issue identifier is not numeric.
	ErrInvalidIssueID = errors.New("wrong format")
)

// Client talks to a single Sentry organization.
type Client struct {
	baseURL      string
	organization string
	token        string

	http    *http.Client
	logger  loggerpkg.Logger
	verbose bool
}

// Option configures optional Client dependencies.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger, verbose bool) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
		c.verbose = verbose
	}
}

// NewClient builds a client from the Sentry section of the runtime config.
func NewClient(cfg configpkg.SentryConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.URL, "/"),
		organization: cfg.Organization,
		token:        cfg.AuthToken,
		http:         &http.Client{Timeout: cfg.Timeout},
		logger:       loggerpkg.NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// HasToken reports whether an auth token is configured.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// Close releases idle keep-alive connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// ListIssues lists the issues of project over the last StatsPeriod.
func (c *Client) ListIssues(ctx context.Context, project string) (string, error) {
	if !c.HasToken() {
		return "", ErrMissingToken
	}
	endpoint := c.endpoint("projects", c.organization, project, "issues") + "?" +
		url.Values{"statsPeriod": {StatsPeriod}}.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return "", fetchError("issues", err)
	}
	return formatIssueList(body)
}

// GetIssue describes a single issue together with its latest event.
// issueID must be a base-10 integer.
func (c *Client) GetIssue(ctx context.Context, issueID string) (string, error) {
	if !c.HasToken() {
		return "", ErrMissingToken
	}
	id, err := ParseIssueID(issueID)
	if err != nil {
		return "", err
	}
	idText := strconv.FormatInt(id, 10)

	issueBody, err := c.get(ctx, c.endpoint("issues", idText))
	if err != nil {
		return "", fetchError("data", err)
	}
	eventBody, err := c.get(ctx, c.endpoint("issues", idText, "events", "latest"))
	if err != nil {
		return "", fetchError("data", err)
	}
	return formatIssueDetails(issueBody, eventBody)
}

// ListTeamMembers lists the users belonging to team.
func (c *Client) ListTeamMembers(ctx context.Context, team string) (string, error) {
	if !c.HasToken() {
		return "", ErrMissingToken
	}
	body, err := c.get(ctx, c.endpoint("teams", c.organization, team, "members"))
	if err != nil {
		return "", fetchError("users", err)
	}
	return formatTeamMembers(team, body)
}

// ListProjectTeams lists the teams with access to project.
func (c *Client) ListProjectTeams(ctx context.Context, project string) (string, error) {
	if !c.HasToken() {
		return "", ErrMissingToken
	}
	body, err := c.get(ctx, c.endpoint("projects", c.organization, project, "teams"))
	if err != nil {
		return "", fetchError("teams", err)
	}
	return formatProjectTeams(project, body)
}

// ParseIssueID validates a numeric issue identifier.
func ParseIssueID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		//lint:ignore ST1005 shown verbatim to the user as a tool result
		return 0, fmt.Errorf("Issue ID %s %w.", raw, ErrInvalidIssueID)
	}
	return id, nil
}

// endpoint joins escaped path segments under /api/0/ with a trailing slash,
// which Sentry requires.
func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString("/api/0/")
	for _, s := range segments {
		b.WriteString(url.PathEscape(s))
		b.WriteByte('/')
	}
	return b.String()
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	loggerpkg.Debug(c.verbose, c.logger, "sentry request", loggerpkg.Fields{"url": endpoint})
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	loggerpkg.Debug(c.verbose, c.logger, "sentry response", loggerpkg.Fields{
		"url":    endpoint,
		"status": resp.StatusCode,
		"bytes":  len(body),
	})
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s for url: %s", resp.Status, endpoint)
	}
	return body, nil
}

func fetchError(what string, err error) error {
	return fmt.Errorf("failed to fetch %s from Sentry: %w", what, err)
}
