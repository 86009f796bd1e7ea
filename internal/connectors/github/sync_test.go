package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/tap-github/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/services"
)

// fakeGitHub serves canned payloads per path and records every query.
type fakeGitHub struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	routes map[string]func(w http.ResponseWriter, r *http.Request)
	seen   map[string][]url.Values
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	f := &fakeGitHub{t: t, routes: make(map[string]func(http.ResponseWriter, *http.Request)), seen: make(map[string][]url.Values)}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.seen[r.URL.Path] = append(f.seen[r.URL.Path], r.URL.Query())
		route, ok := f.routes[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, `{"message":"Not Found"}`)
			return
		}
		route(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGitHub) handle(path string, route func(w http.ResponseWriter, r *http.Request)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = route
}

func (f *fakeGitHub) json(path, body string) {
	f.handle(path, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, body)
	})
}

func (f *fakeGitHub) queries(path string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[path]
}

// nextLink points at the given page of the same path.
func nextLink(r *http.Request, page int) string {
	return fmt.Sprintf(`<http://%s%s?per_page=100&page=%d>; rel="next"`, r.Host, r.URL.Path, page)
}

type tap struct {
	sink  *memory.Sink
	state *memory.StateStore
	runs  *memory.RunLog
}

func newTap() *tap {
	return &tap{sink: memory.NewSink(), state: memory.NewStateStore(), runs: memory.NewRunLog()}
}

func (tp *tap) sync(t *testing.T, f *fakeGitHub, cfg *domain.TapConfig) (*domain.SyncReport, error) {
	t.Helper()
	cfg.APIURL = f.srv.URL
	client, err := NewClient(cfg, WithRequestRate(rate.Inf))
	require.NoError(t, err)
	return services.NewSyncOrchestrator(cfg, Families(), client, tp.sink, tp.state, tp.runs).Sync(context.Background())
}

func serveRepository(f *fakeGitHub) {
	f.json("/repos/Acme/Tap", `{"id": 1, "name": "tap", "full_name": "acme/tap", "owner": {"login": "acme", "id": 9}}`)
	f.handle("/repos/acme/tap/issues", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, http.StatusOK, `[
				{"id": 103, "number": 3, "title": "third", "comments": 2, "updated_at": "2024-03-03T00:00:00Z"}
			]`)
			return
		}
		w.Header().Set("Link", nextLink(r, 2))
		writeJSON(w, http.StatusOK, `[
			{"id": 101, "number": 1, "title": "first", "comments": 0, "updated_at": "2024-03-01T00:00:00Z"},
			{"id": 102, "number": 2, "title": "second", "comments": 0, "updated_at": "2024-03-02T00:00:00Z",
			 "pull_request": {"url": "https://api.github.com/repos/acme/tap/pulls/2"}}
		]`)
	})
	f.json("/repos/acme/tap/issues/3/comments", `[
		{"id": 501, "body": "a", "issue_url": "https://api.github.com/repos/acme/tap/issues/3", "updated_at": "2024-03-04T00:00:00Z"},
		{"id": 502, "body": "b", "issue_url": "https://api.github.com/repos/acme/tap/issues/3", "updated_at": "2024-03-05T00:00:00Z"}
	]`)
	f.json("/repos/acme/tap/pulls", `[{"id": 202, "number": 2, "title": "second", "updated_at": "2024-03-02T00:00:00Z"}]`)
}

func TestSync_Repositories(t *testing.T) {
	f := newFakeGitHub(t)
	serveRepository(f)
	tp := newTap()

	report, err := tp.sync(t, f, &domain.TapConfig{Repositories: []string{"Acme/Tap"}, ValidateRecords: true})

	require.NoError(t, err)

	t.Run("repository names come from the payload", func(t *testing.T) {
		recs := tp.sink.Records(StreamRepositories)
		require.Len(t, recs, 1)
		assert.Equal(t, "acme", recs[0]["org"])
		assert.Equal(t, "tap", recs[0]["repo"])
	})

	t.Run("missing readme is tolerated", func(t *testing.T) {
		assert.Empty(t, tp.sink.Records(StreamReadme))
		assert.Empty(t, report.Stream(StreamReadme).Failures)
		assert.Len(t, f.queries("/repos/acme/tap/readme"), 1)
	})

	t.Run("issues over two pages", func(t *testing.T) {
		recs := tp.sink.Records(StreamIssues)
		require.Len(t, recs, 3)
		assert.Equal(t, "issue", recs[0]["type"])
		assert.Equal(t, "pull_request", recs[1]["type"])
		assert.Equal(t, "acme", recs[2]["org"])

		q := f.queries("/repos/acme/tap/issues")
		require.Len(t, q, 2)
		assert.Equal(t, "all", q[0].Get("state"))
		assert.False(t, q[0].Has("since"))

		bm, err := tp.state.Get(context.Background(), StreamIssues, "repo=tap&org=acme")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-03T00:00:00Z", bm.Value)
	})

	t.Run("comments only for issues with comments", func(t *testing.T) {
		recs := tp.sink.Records(StreamIssueComments)
		require.Len(t, recs, 2)
		assert.Equal(t, int64(3), recs[0]["issue_number"])
		assert.Equal(t, "tap", recs[0]["repo"])

		assert.Empty(t, f.queries("/repos/acme/tap/issues/1/comments"))
		assert.Empty(t, f.queries("/repos/acme/tap/issues/2/comments"))
		assert.Equal(t, 2, report.Stream(StreamIssueComments).Skipped)

		bm, err := tp.state.Get(context.Background(), StreamIssueComments, "repo=tap&org=acme&issue_number=3")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-05T00:00:00Z", bm.Value)
	})

	t.Run("pull requests", func(t *testing.T) {
		assert.Len(t, tp.sink.Records(StreamPullRequests), 1)
	})

	t.Run("run is logged", func(t *testing.T) {
		runs, err := tp.runs.ListRuns(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, domain.RunSucceeded, runs[0].Status)
		assert.Equal(t, report.Records(), runs[0].Records)
	})
}

func TestSync_ResumesFromBookmark(t *testing.T) {
	f := newFakeGitHub(t)
	serveRepository(f)
	tp := newTap()
	cfg := func() *domain.TapConfig {
		return &domain.TapConfig{Repositories: []string{"Acme/Tap"}, Exclude: []string{StreamReadme, StreamPullRequests}}
	}

	_, err := tp.sync(t, f, cfg())
	require.NoError(t, err)
	_, err = tp.sync(t, f, cfg())
	require.NoError(t, err)

	q := f.queries("/repos/acme/tap/issues")
	require.Len(t, q, 4)
	assert.Equal(t, "2024-03-03T00:00:00Z", q[2].Get("since"))

	// The server ignores since, so the second run filters the older issues itself.
	assert.Len(t, tp.sink.Records(StreamIssues), 3+1)
}

func TestSync_Search(t *testing.T) {
	f := newFakeGitHub(t)
	f.handle("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "language:go stars:>1000", r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, `{"total_count": 2, "incomplete_results": false, "items": [
			{"id": 1, "name": "tap", "owner": {"login": "acme"}},
			{"id": 2, "name": "cli", "owner": {"login": "acme"}}
		]}`)
	})
	tp := newTap()

	report, err := tp.sync(t, f, &domain.TapConfig{
		Searches: []domain.SearchQuery{{Name: "popular go", Query: "language:go stars:>1000"}},
		Exclude:  []string{StreamReadme, StreamIssues, StreamIssueComments, StreamPullRequests},
	})

	require.NoError(t, err)
	recs := tp.sink.Records(StreamRepositories)
	require.Len(t, recs, 2)
	assert.Equal(t, "popular go", recs[0]["search_name"])
	assert.Equal(t, "language:go stars:>1000", recs[1]["search_query"])
	assert.Equal(t, 1, report.Stream(StreamRepositories).Requests)
}

func TestSync_Starred(t *testing.T) {
	f := newFakeGitHub(t)
	f.json("/users/octocat", `{"login": "octocat", "id": 583231, "name": "The Octocat"}`)
	f.handle("/users/octocat/starred", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, acceptStar, r.Header.Get("Accept"))
		writeJSON(w, http.StatusOK, `[
			{"starred_at": "2024-02-01T00:00:00Z", "repo": {"id": 42, "name": "tap", "full_name": "acme/tap"}},
			{"starred_at": "2024-02-03T00:00:00Z", "repo": {"id": 43, "name": "cli", "full_name": "acme/cli"}}
		]`)
	})
	tp := newTap()

	_, err := tp.sync(t, f, &domain.TapConfig{UserUsernames: []string{"octocat"}, SkipParentStreams: true})

	require.NoError(t, err)
	assert.Empty(t, tp.sink.Records(StreamUsers), "parent streams run for context only")

	recs := tp.sink.Records(StreamStarred)
	require.Len(t, recs, 2)
	assert.Equal(t, "octocat", recs[0]["username"])
	assert.Equal(t, "583231", recs[0]["user_id"])
	assert.Equal(t, int64(43), recs[1]["repo_id"])
	assert.Equal(t, "acme/cli", recs[1]["repo_full_name"])

	bm, err := tp.state.Get(context.Background(), StreamStarred, "username=octocat")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-03T00:00:00Z", bm.Value)
}

func TestSync_StarredResumesAfterFailedPage(t *testing.T) {
	older := `{"starred_at": "2024-01-01T00:00:00Z", "repo": {"id": 41, "name": "old", "full_name": "acme/old"}}`
	newer := `{"starred_at": "2024-03-01T00:00:00Z", "repo": {"id": 43, "name": "cli", "full_name": "acme/cli"}}`

	f := newFakeGitHub(t)
	f.json("/users/octocat", `{"login": "octocat", "id": 583231}`)
	var secondPageCalls atomic.Int32
	f.handle("/users/octocat/starred", func(w http.ResponseWriter, r *http.Request) {
		// Without an explicit order GitHub lists the newest stars first.
		first, second := newer, older
		if r.URL.Query().Get("sort") == "created" && r.URL.Query().Get("direction") == "asc" {
			first, second = older, newer
		}
		if r.URL.Query().Get("page") == "2" {
			if secondPageCalls.Add(1) == 1 {
				writeJSON(w, http.StatusGone, `{"message":"Gone"}`)
				return
			}
			writeJSON(w, http.StatusOK, "["+second+"]")
			return
		}
		w.Header().Set("Link", nextLink(r, 2))
		writeJSON(w, http.StatusOK, "["+first+"]")
	})
	tp := newTap()
	cfg := func() *domain.TapConfig {
		return &domain.TapConfig{UserUsernames: []string{"octocat"}, SkipParentStreams: true}
	}

	report, err := tp.sync(t, f, cfg())
	require.Error(t, err)
	assert.Len(t, report.Stream(StreamStarred).Failures, 1)

	bm, err := tp.state.Get(context.Background(), StreamStarred, "username=octocat")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", bm.Value, "a failed page must not advance past unseen stars")

	_, err = tp.sync(t, f, cfg())
	require.NoError(t, err)

	var repoIDs []any
	for _, rec := range tp.sink.Records(StreamStarred) {
		repoIDs = append(repoIDs, rec["repo_id"])
	}
	assert.Contains(t, repoIDs, int64(41))
	assert.Contains(t, repoIDs, int64(43))

	bm, err = tp.state.Get(context.Background(), StreamStarred, "username=octocat")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T00:00:00Z", bm.Value)

	for _, q := range f.queries("/users/octocat/starred") {
		assert.Equal(t, "created", q.Get("sort"))
		assert.Equal(t, "asc", q.Get("direction"))
	}
}

func TestSync_MissingRepositoryFailsOnlyItsPartition(t *testing.T) {
	f := newFakeGitHub(t)
	serveRepository(f)
	tp := newTap()

	report, err := tp.sync(t, f, &domain.TapConfig{
		Repositories: []string{"acme/gone", "Acme/Tap"},
		Exclude:      []string{StreamReadme, StreamIssues, StreamIssueComments, StreamPullRequests},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, tp.sink.Records(StreamRepositories), 1)
	assert.Len(t, report.Stream(StreamRepositories).Failures, 1)
	assert.Equal(t, []string{StreamRepositories}, report.FailedStreams())
}
