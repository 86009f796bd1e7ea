package github

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

func buildFamily(t *testing.T, name string, cfg *domain.TapConfig) map[string]*domain.Stream {
	t.Helper()
	for _, f := range Families() {
		if f.Name != name {
			continue
		}
		streams, err := f.Build(cfg)
		require.NoError(t, err)
		byName := make(map[string]*domain.Stream, len(streams))
		for _, s := range streams {
			byName[s.Name] = s
		}
		return byName
	}
	t.Fatalf("family %s not found", name)
	return nil
}

func TestFamilies(t *testing.T) {
	families := Families()

	require.Len(t, families, 2)
	for _, mode := range domain.AllQueryModes() {
		n := 0
		for _, f := range families {
			if f.Supports(mode) {
				n++
			}
		}
		assert.Equal(t, 1, n, "mode %s activates exactly one family", mode)
	}
}

func TestRepositoryStreams(t *testing.T) {
	t.Run("repositories mode", func(t *testing.T) {
		streams := buildFamily(t, "repository", &domain.TapConfig{Repositories: []string{"acme/tap"}})

		require.Len(t, streams, 5)
		repos := streams[StreamRepositories]
		assert.Equal(t, "/repos/{org}/{repo}", repos.Path)
		assert.Nil(t, repos.Paginator)
		assert.Empty(t, repos.RecordsPath)

		assert.Same(t, repos, streams[StreamReadme].Parent)
		assert.Same(t, repos, streams[StreamIssues].Parent)
		assert.Same(t, streams[StreamIssues], streams[StreamIssueComments].Parent)
		assert.Same(t, repos, streams[StreamPullRequests].Parent)
		assert.True(t, streams[StreamReadme].Tolerates(http.StatusNotFound))
	})

	t.Run("searches mode", func(t *testing.T) {
		streams := buildFamily(t, "repository", &domain.TapConfig{
			Searches: []domain.SearchQuery{{Name: "go", Query: "language:go"}},
		})

		repos := streams[StreamRepositories]
		assert.Equal(t, "/search/repositories", repos.Path)
		assert.Equal(t, "$.items[*]", repos.RecordsPath)
		assert.Equal(t, LinkPaginator{PerPage: DefaultPerPage, MaxResults: SearchResultCap}, repos.Paginator)

		q := url.Values{}
		repos.Hooks.URLParams(domain.NewContext(map[string]any{"search_query": "language:go"}), q)
		assert.Equal(t, "language:go", q.Get("q"))
	})

	t.Run("organizations mode", func(t *testing.T) {
		streams := buildFamily(t, "repository", &domain.TapConfig{Organizations: []string{"acme"}})

		repos := streams[StreamRepositories]
		assert.Equal(t, "/orgs/{org}/repos", repos.Path)

		q := url.Values{}
		repos.Hooks.URLParams(domain.Context{}, q)
		assert.Equal(t, "all", q.Get("type"))
	})

	t.Run("stream credential sets", func(t *testing.T) {
		streams := buildFamily(t, "repository", &domain.TapConfig{
			Repositories:   []string{"acme/tap"},
			CredentialSets: map[string][]string{"issues": {"t"}},
		})

		assert.Equal(t, "issues", streams[StreamIssues].CredentialSet)
		assert.Empty(t, streams[StreamPullRequests].CredentialSet)
	})

	t.Run("no mode", func(t *testing.T) {
		_, err := buildRepositoryStreams(&domain.TapConfig{})

		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestRepositoryHooks(t *testing.T) {
	rec := domain.Record{"id": int64(1296269), "name": "Hello-World", "owner": map[string]any{"login": "Octocat"}}

	t.Run("post process takes names from the payload", func(t *testing.T) {
		out, keep := repositoryPostProcess(domain.Record{"name": "Tap", "owner": map[string]any{"login": "Acme"}},
			domain.NewContext(map[string]any{"org": "acme", "repo": "tap"}))

		assert.True(t, keep)
		assert.Equal(t, "Acme", out["org"])
		assert.Equal(t, "Tap", out["repo"])
	})

	t.Run("child context", func(t *testing.T) {
		fields, err := repositoryChildContext(rec, domain.Context{})

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"org": "Octocat", "repo": "Hello-World", "repo_id": int64(1296269)}, fields)
	})

	t.Run("child context without owner", func(t *testing.T) {
		_, err := repositoryChildContext(domain.Record{"id": int64(1), "name": "x"}, domain.Context{})

		assert.Error(t, err)
	})
}

func TestIssueHooks(t *testing.T) {
	t.Run("type", func(t *testing.T) {
		issue, _ := issuePostProcess(domain.Record{"number": int64(1)}, domain.Context{})
		pull, _ := issuePostProcess(domain.Record{"number": int64(2), "pull_request": map[string]any{"url": "x"}}, domain.Context{})

		assert.Equal(t, "issue", issue["type"])
		assert.Equal(t, "pull_request", pull["type"])
	})

	t.Run("child context", func(t *testing.T) {
		fields, err := issueChildContext(domain.Record{"number": int64(7), "comments": int64(3)}, domain.Context{})

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"issue_number": int64(7), "comments": int64(3)}, fields)
	})

	t.Run("headers and params", func(t *testing.T) {
		streams := buildFamily(t, "repository", &domain.TapConfig{Repositories: []string{"acme/tap"}})
		issues := streams[StreamIssues]

		q := url.Values{}
		issues.Hooks.URLParams(domain.Context{}, q)
		h := http.Header{}
		issues.Hooks.Headers(domain.Context{}, h)

		assert.Equal(t, "all", q.Get("state"))
		assert.Equal(t, "updated", q.Get("sort"))
		assert.Equal(t, "asc", q.Get("direction"))
		assert.Equal(t, acceptReactions, h.Get("Accept"))
		assert.Equal(t, "since", issues.SinceParam)
		assert.Empty(t, streams[StreamPullRequests].SinceParam)
	})
}

func TestSkipWithoutComments(t *testing.T) {
	tests := []struct {
		name     string
		comments any
		want     bool
	}{
		{"zero", int64(0), true},
		{"zero float", float64(0), true},
		{"some", int64(4), false},
		{"null", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skip, _ := skipWithoutComments(domain.NewContext(map[string]any{"issue_number": 1, "comments": tt.comments}))
			assert.Equal(t, tt.want, skip)
		})
	}

	t.Run("absent", func(t *testing.T) {
		skip, _ := skipWithoutComments(domain.NewContext(map[string]any{"issue_number": 1}))
		assert.False(t, skip)
	})
}

func TestIssueCommentPostProcess(t *testing.T) {
	out, keep := issueCommentPostProcess(domain.Record{
		"id":        int64(1),
		"issue_url": "https://api.github.com/repos/acme/tap/issues/1347",
	}, domain.Context{})

	assert.True(t, keep)
	assert.Equal(t, int64(1347), out["issue_number"])

	out, _ = issueCommentPostProcess(domain.Record{"id": int64(2)}, domain.Context{})
	assert.NotContains(t, out, "issue_number")
}

func TestUserStreams(t *testing.T) {
	t.Run("usernames", func(t *testing.T) {
		streams := buildFamily(t, "user", &domain.TapConfig{UserUsernames: []string{"octocat"}})

		require.Len(t, streams, 2)
		assert.Equal(t, "/users/{username}", streams[StreamUsers].Path)
		assert.Same(t, streams[StreamUsers], streams[StreamStarred].Parent)
		assert.Equal(t, "starred_at", streams[StreamStarred].ReplicationKey)

		q := url.Values{}
		streams[StreamStarred].Hooks.URLParams(domain.Context{}, q)
		assert.Equal(t, "created", q.Get("sort"))
		assert.Equal(t, "asc", q.Get("direction"))
	})

	t.Run("ids", func(t *testing.T) {
		streams := buildFamily(t, "user", &domain.TapConfig{UserIDs: []string{"583231"}})

		assert.Equal(t, "/user/{user_id}", streams[StreamUsers].Path)
	})

	t.Run("user hooks", func(t *testing.T) {
		rec := domain.Record{"id": int64(583231), "login": "octocat"}

		out, _ := userPostProcess(rec, domain.Context{})
		fields, err := userChildContext(rec, domain.Context{})

		require.NoError(t, err)
		assert.Equal(t, "octocat", out["username"])
		assert.Equal(t, "583231", out["user_id"])
		assert.Equal(t, map[string]any{"username": "octocat", "user_id": "583231"}, fields)
	})

	t.Run("starred flattens the repository", func(t *testing.T) {
		out, keep := starredPostProcess(domain.Record{
			"starred_at": "2024-01-01T00:00:00Z",
			"repo":       map[string]any{"id": int64(42), "full_name": "acme/tap"},
		}, domain.Context{})

		assert.True(t, keep)
		assert.Equal(t, int64(42), out["repo_id"])
		assert.Equal(t, "acme/tap", out["repo_full_name"])
	})
}

func TestLookup(t *testing.T) {
	rec := domain.Record{"owner": map[string]any{"login": "acme", "site_admin": nil}, "name": "tap"}

	v, ok := lookup(rec, "owner", "login")
	assert.True(t, ok)
	assert.Equal(t, "acme", v)

	_, ok = lookup(rec, "owner", "site_admin")
	assert.False(t, ok)

	_, ok = lookup(rec, "name", "x")
	assert.False(t, ok)
}
