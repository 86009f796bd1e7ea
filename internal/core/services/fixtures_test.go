package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/ports/driven"
)

// --- Test doubles ---

// fakeTransport answers requests with a handler and records them.
type fakeTransport struct {
	mu       sync.Mutex
	requests []driven.Request
	handler  func(req driven.Request) (*driven.Response, error)
}

func (f *fakeTransport) Do(ctx context.Context, req driven.Request) (*driven.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.handler(req)
}

// requestsTo returns the recorded requests whose path matches.
func (f *fakeTransport) requestsTo(path string) []driven.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []driven.Request
	for _, r := range f.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// statusError is a transport error carrying an HTTP status.
type statusError struct {
	status int
}

func (e statusError) Error() string { return fmt.Sprintf("status %d", e.status) }
func (e statusError) Status() int   { return e.status }
func (e statusError) Unwrap() error { return domain.ErrFatalRequest }

// headerPaginator reads the next page number from X-Next.
type headerPaginator struct{}

func (headerPaginator) Apply(query url.Values, token domain.PageToken) {
	if token != "" {
		query.Set("page", string(token))
	}
}

func (headerPaginator) Next(p domain.Page) domain.PageToken {
	return domain.PageToken(p.Header.Get("X-Next"))
}

func jsonResponse(v any, next string) *driven.Response {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	h := http.Header{}
	if next != "" {
		h.Set("X-Next", next)
	}
	return &driven.Response{StatusCode: http.StatusOK, Header: h, Body: body}
}

// ts returns a timestamp i minutes after the epoch of the fixtures.
func ts(i int) string {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
}

// issue builds an issue payload.
func issue(number, comments int) map[string]any {
	return map[string]any{
		"id":         1000 + number,
		"number":     number,
		"comments":   comments,
		"updated_at": ts(number),
	}
}

// --- Test streams ---

type testStreams struct {
	repositories *domain.Stream
	issues       *domain.Stream
	comments     *domain.Stream
}

func newTestStreams() testStreams {
	repositories := &domain.Stream{
		Name:        "repositories",
		Path:        "/repos/{org}/{repo}",
		PrimaryKeys: []string{"id"},
		Modes:       []domain.QueryMode{domain.ModeRepositories},
		Schema: domain.NewSchema(
			domain.Prop("id", domain.IntegerType()),
			domain.Prop("name", domain.StringType()),
			domain.Prop("org", domain.StringType()),
			domain.Prop("repo", domain.StringType()),
		),
		Hooks: domain.Hooks{
			ChildContext: func(rec domain.Record, _ domain.Context) (map[string]any, error) {
				return map[string]any{"repo_id": rec["id"]}, nil
			},
		},
	}
	issues := &domain.Stream{
		Name:                  "issues",
		Parent:                repositories,
		Path:                  "/repos/{org}/{repo}/issues",
		PrimaryKeys:           []string{"id"},
		ReplicationKey:        "updated_at",
		SinceParam:            "since",
		StatePartitioningKeys: []string{"org", "repo"},
		Paginator:             headerPaginator{},
		Schema: domain.NewSchema(
			domain.Prop("id", domain.IntegerType()),
			domain.Prop("number", domain.IntegerType()),
			domain.Prop("comments", domain.IntegerType()),
			domain.Prop("updated_at", domain.DateTimeType()),
			domain.Prop("org", domain.StringType()),
			domain.Prop("repo", domain.StringType()),
		),
		Hooks: domain.Hooks{
			URLParams: func(_ domain.Context, q url.Values) {
				q.Set("state", "all")
			},
			ChildContext: func(rec domain.Record, _ domain.Context) (map[string]any, error) {
				return map[string]any{"issue_number": rec["number"], "comments": rec["comments"]}, nil
			},
		},
	}
	comments := &domain.Stream{
		Name:                  "issue_comments",
		Parent:                issues,
		Path:                  "/repos/{org}/{repo}/issues/{issue_number}/comments",
		PrimaryKeys:           []string{"id"},
		ReplicationKey:        "updated_at",
		SinceParam:            "since",
		StatePartitioningKeys: []string{"org", "repo", "issue_number"},
		Schema: domain.NewSchema(
			domain.Prop("id", domain.IntegerType()),
			domain.Prop("updated_at", domain.DateTimeType()),
			domain.Prop("issue_number", domain.IntegerType()),
		),
		Hooks: domain.Hooks{
			Skip: func(ctx domain.Context) (bool, string) {
				if ctx.GetString("comments") == "0" {
					return true, "no comments"
				}
				return false, ""
			},
		},
	}
	return testStreams{repositories: repositories, issues: issues, comments: comments}
}

// families registers only the leaf stream; ancestors come from the closure.
func (s testStreams) families() []domain.StreamFamily {
	return []domain.StreamFamily{{
		Name:  "repository",
		Modes: []domain.QueryMode{domain.ModeRepositories},
		Build: func(*domain.TapConfig) ([]*domain.Stream, error) {
			return []*domain.Stream{s.comments}, nil
		},
	}}
}
