package sentry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configpkg "github.com/minhyannv/sentry-agent-go/pkg/config"
)

func newTestClient(t *testing.T, url, token string) *Client {
	t.Helper()
	c := NewClient(configpkg.SentryConfig{URL: url, Organization: "sentry", AuthToken: token})
	t.Cleanup(c.Close)
	return c
}

// stubServer serves body for every request and counts hits.
func stubServer(t *testing.T, status int, routes map[string]string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestListIssuesFormatsIssuesInOrder(t *testing.T) {
	var gotQuery, gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/0/projects/sentry/myproject/issues/", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`[{"id":"101","title":"ZeroDivisionError"},{"id":"102","title":"KeyError: 'x'"}]`))
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv.URL, "tok").ListIssues(context.Background(), "myproject")
	require.NoError(t, err)
	assert.Equal(t, "List of Sentry Issues:\nID: 101, Title: ZeroDivisionError\nID: 102, Title: KeyError: 'x'\n", out)
	assert.Equal(t, "statsPeriod=14d", gotQuery)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "application/json", gotType)
}

func TestListIssuesEmpty(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, map[string]string{"/api/0/projects/sentry/p/issues/": `[]`})
	out, err := newTestClient(t, srv.URL, "tok").ListIssues(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "No issues found.", out)
}

func TestListIssuesMissingKey(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, map[string]string{"/api/0/projects/sentry/p/issues/": `[{"id":"1"}]`})
	_, err := newTestClient(t, srv.URL, "tok").ListIssues(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process Sentry response")
	assert.Contains(t, err.Error(), `"title"`)
}

func TestListIssuesRejectsNonArray(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, map[string]string{"/api/0/projects/sentry/p/issues/": `{"detail":"x"}`})
	_, err := newTestClient(t, srv.URL, "tok").ListIssues(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process Sentry response")
}

func TestListIssuesHTTPError(t *testing.T) {
	srv, _ := stubServer(t, http.StatusForbidden, map[string]string{"/api/0/projects/sentry/p/issues/": `{"detail":"nope"}`})
	_, err := newTestClient(t, srv.URL, "tok").ListIssues(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to fetch issues from Sentry: 403"), err.Error())
}

func TestMissingTokenSkipsNetwork(t *testing.T) {
	srv, hits := stubServer(t, http.StatusOK, nil)
	c := newTestClient(t, srv.URL, "")
	ctx := context.Background()

	calls := []func() (string, error){
		func() (string, error) { return c.ListIssues(ctx, "p") },
		func() (string, error) { return c.GetIssue(ctx, "1") },
		func() (string, error) { return c.ListTeamMembers(ctx, "t") },
		func() (string, error) { return c.ListProjectTeams(ctx, "p") },
	}
	for _, call := range calls {
		_, err := call()
		require.ErrorIs(t, err, ErrMissingToken)
		assert.Equal(t, "Please set SENTRY_AUTH_TOKEN.", err.Error())
	}
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestGetIssueRejectsNonNumericID(t *testing.T) {
	srv, hits := stubServer(t, http.StatusOK, nil)
	_, err := newTestClient(t, srv.URL, "tok").GetIssue(context.Background(), "abc")
	require.ErrorIs(t, err, ErrInvalidIssueID)
	assert.Equal(t, "Issue ID abc wrong format.", err.Error())
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestGetIssueWithTraceback(t *testing.T) {
	issue := `{"id":"42","title":"ValueError","level":"error","project":{"slug":"web"},
		"firstSeen":"2024-01-01T00:00:00Z","lastSeen":"2024-01-02T00:00:00Z","count":"7","userCount":3,
		"permalink":"http://sentry/issues/42/"}`
	event := `{"eventID":"abc123","dateCreated":"2024-01-02T00:00:00Z","release":null,
		"entries":[{"data":{"values":[{"stacktrace":{"frames":[
			{"filename":"a.py","lineNo":1,"function":"outer"},
			{"filename":"b.py","lineNo":12,"function":"inner","context":[[11,"x = 1"],[12,"raise ValueError()"]]}
		]}}]}}]}`
	srv, hits := stubServer(t, http.StatusOK, map[string]string{
		"/api/0/issues/42/":               issue,
		"/api/0/issues/42/events/latest/": event,
	})

	out, err := newTestClient(t, srv.URL, "tok").GetIssue(context.Background(), "42")
	require.NoError(t, err)

	want := "Issue Details:\n" +
		"ID: 42\nTitle: ValueError\nLevel: error\nProject: web\n" +
		"First Seen: 2024-01-01T00:00:00Z\nLast Seen: 2024-01-02T00:00:00Z\n" +
		"Count: 7\nUser Count: 3\nURL: http://sentry/issues/42/\n" +
		"\nLatest Event:\nEvent ID: abc123\nTimestamp: 2024-01-02T00:00:00Z\nRelease: N/A\n" +
		"\nTraceback (Last Frame):\nFile: b.py\nLine: 12\nFunction: inner\nContext:\n" +
		"  11 | x = 1\n  12 | raise ValueError()\n" +
		strings.Repeat("-", 50) + "\n"
	assert.Equal(t, want, out)
	assert.EqualValues(t, 2, atomic.LoadInt32(hits))
}

func TestGetIssueWithoutTraceback(t *testing.T) {
	issue := `{"id":"7","title":"t","level":"warning","project":{"slug":"p"},"firstSeen":"a","lastSeen":"b",
		"count":"1","userCount":0,"permalink":"u"}`
	srv, _ := stubServer(t, http.StatusOK, map[string]string{
		"/api/0/issues/7/":               issue,
		"/api/0/issues/7/events/latest/": `{"eventID":"e","dateCreated":"d","release":"1.0.0","entries":[]}`,
	})

	out, err := newTestClient(t, srv.URL, "tok").GetIssue(context.Background(), " 7 ")
	require.NoError(t, err)
	assert.Contains(t, out, "Release: 1.0.0\n")
	assert.True(t, strings.HasSuffix(out, "Traceback (Last Frame):\nNo traceback available.\n"), out)
}

func TestGetIssueMissingProjectSlug(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, map[string]string{
		"/api/0/issues/7/":               `{"id":"7","title":"t","level":"l"}`,
		"/api/0/issues/7/events/latest/": `{"eventID":"e","dateCreated":"d"}`,
	})
	_, err := newTestClient(t, srv.URL, "tok").GetIssue(context.Background(), "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing key "project.slug"`)
}

func TestGetIssueRejectsMalformedTraceback(t *testing.T) {
	issue := `{"id":"7","title":"t","level":"l","project":{"slug":"p"},"firstSeen":"a","lastSeen":"b",
		"count":"1","userCount":0,"permalink":"u"}`
	withFrames := func(frames string) string {
		return `{"eventID":"e","dateCreated":"d","entries":[{"data":{"values":[{"stacktrace":{"frames":` + frames + `}}]}}]}`
	}
	cases := map[string]string{
		"frames is a string":       withFrames(`"oops"`),
		"frames is an object":      withFrames(`{"filename":"a.py"}`),
		"frame is not an object":   withFrames(`["a.py"]`),
		"context is a string":      withFrames(`[{"filename":"a.py","context":"x = 1"}]`),
		"context line is short":    withFrames(`[{"filename":"a.py","context":[[1]]}]`),
		"context line number text": withFrames(`[{"filename":"a.py","context":[["one","x = 1"]]}]`),
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := stubServer(t, http.StatusOK, map[string]string{
				"/api/0/issues/7/":               issue,
				"/api/0/issues/7/events/latest/": event,
			})
			out, err := newTestClient(t, srv.URL, "tok").GetIssue(context.Background(), "7")
			require.Error(t, err, out)
			assert.True(t, strings.HasPrefix(err.Error(), "failed to process Sentry response: "), err.Error())
		})
	}
}

func TestGetIssueNullFramesHasNoTraceback(t *testing.T) {
	issue := `{"id":"7","title":"t","level":"l","project":{"slug":"p"},"firstSeen":"a","lastSeen":"b",
		"count":"1","userCount":0,"permalink":"u"}`
	srv, _ := stubServer(t, http.StatusOK, map[string]string{
		"/api/0/issues/7/": issue,
		"/api/0/issues/7/events/latest/": `{"eventID":"e","dateCreated":"d",
			"entries":[{"data":{"values":[{"stacktrace":{"frames":null}}]}}]}`,
	})
	out, err := newTestClient(t, srv.URL, "tok").GetIssue(context.Background(), "7")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "No traceback available.\n"), out)
}

func TestListTeamMembers(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, map[string]string{
		"/api/0/teams/sentry/backend/members/": `[{"id":"1","email":"a@x.io","name":"Ann"},{"id":"2","email":"b@x.io"}]`,
	})
	out, err := newTestClient(t, srv.URL, "tok").ListTeamMembers(context.Background(), "backend")
	require.NoError(t, err)
	assert.Equal(t, "List of Sentry Users in team 'backend':\n"+
		"ID: 1, Email: a@x.io, Name: Ann\n"+
		"ID: 2, Email: b@x.io, Name: N/A\n", out)
}

func TestListTeamMembersEmpty(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, map[string]string{"/api/0/teams/sentry/backend/members/": `[]`})
	out, err := newTestClient(t, srv.URL, "tok").ListTeamMembers(context.Background(), "backend")
	require.NoError(t, err)
	assert.Equal(t, "No users found in team: backend", out)
}

func TestListProjectTeams(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, map[string]string{
		"/api/0/projects/sentry/web/teams/": `[{"id":"9","slug":"frontend","name":"Frontend"}]`,
	})
	out, err := newTestClient(t, srv.URL, "tok").ListProjectTeams(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, "Teams associated with project 'web':\nID: 9, Slug: frontend, Name: Frontend\n", out)
}

func TestListProjectTeamsEmpty(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, map[string]string{"/api/0/projects/sentry/web/teams/": `[]`})
	out, err := newTestClient(t, srv.URL, "tok").ListProjectTeams(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, "No teams found for project: web", out)
}

func TestConnectionRefusedIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, "tok")
	ctx := context.Background()
	for _, call := range []func() (string, error){
		func() (string, error) { return c.ListIssues(ctx, "p") },
		func() (string, error) { return c.GetIssue(ctx, "1") },
		func() (string, error) { return c.ListTeamMembers(ctx, "t") },
		func() (string, error) { return c.ListProjectTeams(ctx, "p") },
	} {
		_, err := call()
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "failed to fetch "), err.Error())
	}
}

func TestEndpointEscapesSegments(t *testing.T) {
	c := NewClient(configpkg.SentryConfig{URL: "http://h/", Organization: "org"})
	assert.Equal(t, "http://h/api/0/projects/org/a%2Fb/teams/", c.endpoint("projects", "org", "a/b", "teams"))
}

func TestCancelledContext(t *testing.T) {
	srv, _ := stubServer(t, http.StatusOK, map[string]string{"/api/0/projects/sentry/p/issues/": `[]`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(t, srv.URL, "tok").ListIssues(ctx, "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
