package github

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

// Stream names.
const (
	StreamRepositories  = "repositories"
	StreamReadme        = "readme"
	StreamIssues        = "issues"
	StreamIssueComments = "issue_comments"
	StreamPullRequests  = "pull_requests"
	StreamUsers         = "users"
	StreamStarred       = "starred"
)

// Media types.
const (
	// acceptReactions includes the reactions rollup in issue payloads.
	acceptReactions = "application/vnd.github.squirrel-girl-preview+json"

	// acceptStar wraps starred repositories with their starred_at timestamp.
	acceptStar = "application/vnd.github.star+json"
)

// Families returns the stream families of the tap.
func Families() []domain.StreamFamily {
	return []domain.StreamFamily{
		{
			Name:  "repository",
			Modes: []domain.QueryMode{domain.ModeSearches, domain.ModeRepositories, domain.ModeOrganizations},
			Build: buildRepositoryStreams,
		},
		{
			Name:  "user",
			Modes: []domain.QueryMode{domain.ModeUserUsernames, domain.ModeUserIDs},
			Build: buildUserStreams,
		},
	}
}

func buildRepositoryStreams(cfg *domain.TapConfig) ([]*domain.Stream, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}

	repositories := &domain.Stream{
		Name:          StreamRepositories,
		PrimaryKeys:   []string{"id"},
		Schema:        repositorySchema(),
		Modes:         []domain.QueryMode{domain.ModeSearches, domain.ModeRepositories, domain.ModeOrganizations},
		CredentialSet: credentialSet(cfg, StreamRepositories),
		Hooks: domain.Hooks{
			PostProcess:  repositoryPostProcess,
			ChildContext: repositoryChildContext,
		},
	}
	switch mode {
	case domain.ModeSearches:
		repositories.Path = "/search/repositories"
		repositories.RecordsPath = "$.items[*]"
		repositories.Paginator = LinkPaginator{PerPage: DefaultPerPage, MaxResults: SearchResultCap}
		repositories.Hooks.URLParams = func(ctx domain.Context, q url.Values) {
			q.Set("q", ctx.GetString("search_query"))
		}
	case domain.ModeOrganizations:
		repositories.Path = "/orgs/{org}/repos"
		repositories.Paginator = LinkPaginator{}
		repositories.Hooks.URLParams = func(_ domain.Context, q url.Values) {
			q.Set("type", "all")
		}
	default:
		repositories.Path = "/repos/{org}/{repo}"
	}

	readme := &domain.Stream{
		Name:                  StreamReadme,
		Parent:                repositories,
		Path:                  "/repos/{org}/{repo}/readme",
		PrimaryKeys:           []string{"repo", "org"},
		StatePartitioningKeys: []string{"repo", "org"},
		Schema:                readmeSchema(),
		ToleratedStatuses:     []int{http.StatusNotFound},
		CredentialSet:         credentialSet(cfg, StreamReadme),
	}

	issues := &domain.Stream{
		Name:                  StreamIssues,
		Parent:                repositories,
		Path:                  "/repos/{org}/{repo}/issues",
		PrimaryKeys:           []string{"id"},
		ReplicationKey:        "updated_at",
		StatePartitioningKeys: []string{"repo", "org"},
		Schema:                issueSchema(),
		SinceParam:            "since",
		Paginator:             LinkPaginator{},
		CredentialSet:         credentialSet(cfg, StreamIssues),
		Hooks: domain.Hooks{
			URLParams:    updatedAscending,
			Headers:      accept(acceptReactions),
			PostProcess:  issuePostProcess,
			ChildContext: issueChildContext,
		},
	}

	issueComments := &domain.Stream{
		Name:                  StreamIssueComments,
		Parent:                issues,
		Path:                  "/repos/{org}/{repo}/issues/{issue_number}/comments",
		PrimaryKeys:           []string{"id"},
		ReplicationKey:        "updated_at",
		StatePartitioningKeys: []string{"repo", "org", "issue_number"},
		Schema:                issueCommentSchema(),
		SinceParam:            "since",
		Paginator:             LinkPaginator{},
		CredentialSet:         credentialSet(cfg, StreamIssueComments),
		Hooks: domain.Hooks{
			PostProcess: issueCommentPostProcess,
			Skip:        skipWithoutComments,
		},
	}

	pullRequests := &domain.Stream{
		Name:                  StreamPullRequests,
		Parent:                repositories,
		Path:                  "/repos/{org}/{repo}/pulls",
		PrimaryKeys:           []string{"id"},
		ReplicationKey:        "updated_at",
		StatePartitioningKeys: []string{"repo", "org"},
		Schema:                pullRequestSchema(),
		Paginator:             LinkPaginator{},
		CredentialSet:         credentialSet(cfg, StreamPullRequests),
		Hooks: domain.Hooks{
			URLParams: updatedAscending,
			Headers:   accept(acceptReactions),
		},
	}

	return []*domain.Stream{repositories, readme, issues, issueComments, pullRequests}, nil
}

func buildUserStreams(cfg *domain.TapConfig) ([]*domain.Stream, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}

	users := &domain.Stream{
		Name:          StreamUsers,
		Path:          "/users/{username}",
		PrimaryKeys:   []string{"id"},
		Schema:        userSchema(),
		Modes:         []domain.QueryMode{domain.ModeUserUsernames, domain.ModeUserIDs},
		CredentialSet: credentialSet(cfg, StreamUsers),
		Hooks: domain.Hooks{
			PostProcess:  userPostProcess,
			ChildContext: userChildContext,
		},
	}
	if mode == domain.ModeUserIDs {
		users.Path = "/user/{user_id}"
	}

	starred := &domain.Stream{
		Name:                  StreamStarred,
		Parent:                users,
		Path:                  "/users/{username}/starred",
		PrimaryKeys:           []string{"username", "repo_id"},
		ReplicationKey:        "starred_at",
		StatePartitioningKeys: []string{"username"},
		Schema:                starredSchema(),
		Paginator:             LinkPaginator{},
		CredentialSet:         credentialSet(cfg, StreamStarred),
		Hooks: domain.Hooks{
			URLParams:   starredAscending,
			Headers:     accept(acceptStar),
			PostProcess: starredPostProcess,
		},
	}

	return []*domain.Stream{users, starred}, nil
}

// credentialSet returns the set named after the stream, if configured.
func credentialSet(cfg *domain.TapConfig, stream string) string {
	if _, ok := cfg.CredentialSets[stream]; ok {
		return stream
	}
	return ""
}

// --- Hooks ---

func accept(mediaType string) func(domain.Context, http.Header) {
	return func(_ domain.Context, h http.Header) {
		h.Set("Accept", mediaType)
	}
}

func updatedAscending(_ domain.Context, q url.Values) {
	q.Set("state", "all")
	q.Set("sort", "updated")
	q.Set("direction", "asc")
}

// starredAscending orders stars oldest first, so a bookmark committed after
// a page never passes stars on later pages.
func starredAscending(_ domain.Context, q url.Values) {
	q.Set("sort", "created")
	q.Set("direction", "asc")
}

// repositoryPostProcess takes org and repo from the payload, which carries
// the canonical casing.
func repositoryPostProcess(rec domain.Record, _ domain.Context) (domain.Record, bool) {
	if login, ok := lookup(rec, "owner", "login"); ok {
		rec["org"] = login
	}
	if name, ok := lookup(rec, "name"); ok {
		rec["repo"] = name
	}
	return rec, true
}

func repositoryChildContext(rec domain.Record, _ domain.Context) (map[string]any, error) {
	login, ok := lookup(rec, "owner", "login")
	if !ok {
		return nil, fmt.Errorf("repository %v has no owner.login", rec["id"])
	}
	name, ok := lookup(rec, "name")
	if !ok {
		return nil, fmt.Errorf("repository %v has no name", rec["id"])
	}
	return map[string]any{"org": login, "repo": name, "repo_id": rec["id"]}, nil
}

func issuePostProcess(rec domain.Record, _ domain.Context) (domain.Record, bool) {
	if _, ok := lookup(rec, "pull_request"); ok {
		rec["type"] = "pull_request"
	} else {
		rec["type"] = "issue"
	}
	return rec, true
}

func issueChildContext(rec domain.Record, _ domain.Context) (map[string]any, error) {
	number, ok := lookup(rec, "number")
	if !ok {
		return nil, fmt.Errorf("issue %v has no number", rec["id"])
	}
	return map[string]any{"issue_number": number, "comments": rec["comments"]}, nil
}

// skipWithoutComments skips the comments fetch of issues reporting zero comments.
func skipWithoutComments(ctx domain.Context) (bool, string) {
	v, ok := ctx.Get("comments")
	if !ok || v == nil {
		return false, ""
	}
	if domain.FormatValue(v) == "0" {
		return true, "issue has no comments"
	}
	return false, ""
}

// issueCommentPostProcess derives issue_number from the trailing segment of issue_url.
func issueCommentPostProcess(rec domain.Record, _ domain.Context) (domain.Record, bool) {
	issueURL, ok := rec["issue_url"].(string)
	if !ok {
		return rec, true
	}
	segment := issueURL[strings.LastIndex(issueURL, "/")+1:]
	if n, err := strconv.ParseInt(segment, 10, 64); err == nil {
		rec["issue_number"] = n
	}
	return rec, true
}

func userPostProcess(rec domain.Record, _ domain.Context) (domain.Record, bool) {
	if login, ok := lookup(rec, "login"); ok {
		rec["username"] = login
	}
	if id, ok := lookup(rec, "id"); ok {
		rec["user_id"] = domain.FormatValue(id)
	}
	return rec, true
}

func userChildContext(rec domain.Record, _ domain.Context) (map[string]any, error) {
	login, ok := lookup(rec, "login")
	if !ok {
		return nil, fmt.Errorf("user %v has no login", rec["id"])
	}
	fields := map[string]any{"username": login}
	if id, ok := lookup(rec, "id"); ok {
		fields["user_id"] = domain.FormatValue(id)
	}
	return fields, nil
}

// starredPostProcess flattens the starred repository's identity.
func starredPostProcess(rec domain.Record, _ domain.Context) (domain.Record, bool) {
	if id, ok := lookup(rec, "repo", "id"); ok {
		rec["repo_id"] = id
	}
	if name, ok := lookup(rec, "repo", "full_name"); ok {
		rec["repo_full_name"] = name
	}
	return rec, true
}

// lookup walks nested objects and reports whether a non-null value was found.
func lookup(rec domain.Record, path ...string) (any, bool) {
	var cur any = map[string]any(rec)
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}
