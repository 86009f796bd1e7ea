package github

import (
	"github.com/custodia-labs/tap-github/internal/core/domain"
)

// userType is the abbreviated user object embedded in most payloads.
func userType() domain.Type {
	return domain.ObjectType(
		domain.Prop("login", domain.StringType()),
		domain.Prop("id", domain.IntegerType()),
		domain.Prop("node_id", domain.StringType()),
		domain.Prop("avatar_url", domain.StringType()),
		domain.Prop("gravatar_id", domain.StringType()),
		domain.Prop("html_url", domain.StringType()),
		domain.Prop("type", domain.StringType()),
		domain.Prop("site_admin", domain.BooleanType()),
	)
}

func labelType() domain.Type {
	return domain.ObjectType(
		domain.Prop("id", domain.IntegerType()),
		domain.Prop("node_id", domain.StringType()),
		domain.Prop("url", domain.StringType()),
		domain.Prop("name", domain.StringType()),
		domain.Prop("description", domain.StringType()),
		domain.Prop("color", domain.StringType()),
		domain.Prop("default", domain.BooleanType()),
	)
}

func milestoneType() domain.Type {
	return domain.ObjectType(
		domain.Prop("html_url", domain.StringType()),
		domain.Prop("node_id", domain.StringType()),
		domain.Prop("id", domain.IntegerType()),
		domain.Prop("number", domain.IntegerType()),
		domain.Prop("state", domain.StringType()),
		domain.Prop("title", domain.StringType()),
		domain.Prop("description", domain.StringType()),
		domain.Prop("creator", userType()),
		domain.Prop("open_issues", domain.IntegerType()),
		domain.Prop("closed_issues", domain.IntegerType()),
		domain.Prop("created_at", domain.DateTimeType()),
		domain.Prop("updated_at", domain.DateTimeType()),
		domain.Prop("closed_at", domain.DateTimeType()),
		domain.Prop("due_on", domain.DateTimeType()),
	)
}

func branchRefType() domain.Type {
	return domain.ObjectType(
		domain.Prop("label", domain.StringType()),
		domain.Prop("ref", domain.StringType()),
		domain.Prop("sha", domain.StringType()),
		domain.Prop("user", userType()),
		domain.Prop("repo", domain.ObjectType(
			domain.Prop("id", domain.IntegerType()),
			domain.Prop("name", domain.StringType()),
			domain.Prop("full_name", domain.StringType()),
		)),
	)
}

func repositoryProps() []domain.Property {
	return []domain.Property{
		domain.Prop("id", domain.IntegerType()),
		domain.Prop("node_id", domain.StringType()),
		domain.Prop("name", domain.StringType()),
		domain.Prop("full_name", domain.StringType()),
		domain.Prop("description", domain.StringType()),
		domain.Prop("html_url", domain.StringType()),
		domain.Prop("owner", userType()),
		domain.Prop("license", domain.ObjectType(
			domain.Prop("key", domain.StringType()),
			domain.Prop("name", domain.StringType()),
			domain.Prop("url", domain.StringType()),
			domain.Prop("spdx_id", domain.StringType()),
		)),
		domain.Prop("master_branch", domain.StringType()),
		domain.Prop("default_branch", domain.StringType()),
		domain.Prop("updated_at", domain.DateTimeType()),
		domain.Prop("created_at", domain.DateTimeType()),
		domain.Prop("pushed_at", domain.DateTimeType()),
		domain.Prop("git_url", domain.StringType()),
		domain.Prop("ssh_url", domain.StringType()),
		domain.Prop("clone_url", domain.StringType()),
		domain.Prop("homepage", domain.StringType()),
		domain.Prop("private", domain.BooleanType()),
		domain.Prop("archived", domain.BooleanType()),
		domain.Prop("disabled", domain.BooleanType()),
		domain.Prop("size", domain.IntegerType()),
		domain.Prop("stargazers_count", domain.IntegerType()),
		domain.Prop("fork", domain.BooleanType()),
		domain.Prop("forks", domain.IntegerType()),
		domain.Prop("forks_count", domain.IntegerType()),
		domain.Prop("watchers", domain.IntegerType()),
		domain.Prop("watchers_count", domain.IntegerType()),
		domain.Prop("open_issues", domain.IntegerType()),
		domain.Prop("open_issues_count", domain.IntegerType()),
		domain.Prop("network_count", domain.IntegerType()),
		domain.Prop("subscribers_count", domain.IntegerType()),
		domain.Prop("topics", domain.ArrayType(domain.StringType())),
		domain.Prop("visibility", domain.StringType()),
	}
}

func repositorySchema() *domain.Schema {
	props := []domain.Property{
		domain.Prop("search_name", domain.StringType()),
		domain.Prop("search_query", domain.StringType()),
		domain.Prop("org", domain.StringType()),
		domain.Prop("repo", domain.StringType()),
	}
	props = append(props, repositoryProps()...)
	props = append(props,
		domain.Prop("allow_squash_merge", domain.BooleanType()),
		domain.Prop("allow_merge_commit", domain.BooleanType()),
		domain.Prop("allow_rebase_merge", domain.BooleanType()),
		domain.Prop("allow_auto_merge", domain.BooleanType()),
		domain.Prop("delete_branch_on_merge", domain.BooleanType()),
		domain.Prop("organization", userType()),
	)
	return domain.NewSchema(props...)
}

func readmeSchema() *domain.Schema {
	return domain.NewSchema(
		domain.Prop("org", domain.StringType()),
		domain.Prop("repo", domain.StringType()),
		domain.Prop("type", domain.StringType()),
		domain.Prop("encoding", domain.StringType()),
		domain.Prop("size", domain.IntegerType()),
		domain.Prop("name", domain.StringType()),
		domain.Prop("path", domain.StringType()),
		domain.Prop("content", domain.StringType()),
		domain.Prop("sha", domain.StringType()),
		domain.Prop("url", domain.StringType()),
		domain.Prop("git_url", domain.StringType()),
		domain.Prop("html_url", domain.StringType()),
		domain.Prop("download_url", domain.StringType()),
		domain.Prop("_links", domain.ObjectType(
			domain.Prop("git", domain.StringType()),
			domain.Prop("self", domain.StringType()),
			domain.Prop("html", domain.StringType()),
		)),
	)
}

func issueSchema() *domain.Schema {
	return domain.NewSchema(
		domain.Prop("org", domain.StringType()),
		domain.Prop("repo", domain.StringType()),
		domain.Prop("id", domain.IntegerType()),
		domain.Prop("node_id", domain.StringType()),
		domain.Prop("url", domain.StringType()),
		domain.Prop("html_url", domain.StringType()),
		domain.Prop("number", domain.IntegerType()),
		domain.Prop("type", domain.StringType()),
		domain.Prop("updated_at", domain.DateTimeType()),
		domain.Prop("created_at", domain.DateTimeType()),
		domain.Prop("closed_at", domain.DateTimeType()),
		domain.Prop("state", domain.StringType()),
		domain.Prop("title", domain.StringType()),
		domain.Prop("comments", domain.IntegerType()),
		domain.Prop("author_association", domain.StringType()),
		domain.Prop("body", domain.StringType()),
		domain.Prop("user", userType()),
		domain.Prop("labels", domain.ArrayType(labelType())),
		domain.Prop("assignee", userType()),
		domain.Prop("assignees", domain.ArrayType(userType())),
		domain.Prop("milestone", milestoneType()),
		domain.Prop("locked", domain.BooleanType()),
		domain.Prop("reactions", domain.ObjectType(
			domain.Prop("total_count", domain.IntegerType()),
			domain.Prop("+1", domain.IntegerType()),
			domain.Prop("-1", domain.IntegerType()),
			domain.Prop("laugh", domain.IntegerType()),
			domain.Prop("hooray", domain.IntegerType()),
			domain.Prop("confused", domain.IntegerType()),
			domain.Prop("heart", domain.IntegerType()),
			domain.Prop("rocket", domain.IntegerType()),
			domain.Prop("eyes", domain.IntegerType()),
		)),
		domain.Prop("pull_request", domain.ObjectType(
			domain.Prop("html_url", domain.StringType()),
			domain.Prop("url", domain.StringType()),
			domain.Prop("diff_url", domain.StringType()),
			domain.Prop("patch_url", domain.StringType()),
		)),
	)
}

func issueCommentSchema() *domain.Schema {
	return domain.NewSchema(
		domain.Prop("org", domain.StringType()),
		domain.Prop("repo", domain.StringType()),
		domain.Prop("id", domain.IntegerType()),
		domain.Prop("node_id", domain.StringType()),
		domain.Prop("issue_number", domain.IntegerType()),
		domain.Prop("issue_url", domain.StringType()),
		domain.Prop("html_url", domain.StringType()),
		domain.Prop("updated_at", domain.DateTimeType()),
		domain.Prop("created_at", domain.DateTimeType()),
		domain.Prop("author_association", domain.StringType()),
		domain.Prop("body", domain.StringType()),
		domain.Prop("user", userType()),
	)
}

func pullRequestSchema() *domain.Schema {
	return domain.NewSchema(
		domain.Prop("org", domain.StringType()),
		domain.Prop("repo", domain.StringType()),
		domain.Prop("id", domain.IntegerType()),
		domain.Prop("node_id", domain.StringType()),
		domain.Prop("url", domain.StringType()),
		domain.Prop("html_url", domain.StringType()),
		domain.Prop("diff_url", domain.StringType()),
		domain.Prop("patch_url", domain.StringType()),
		domain.Prop("number", domain.IntegerType()),
		domain.Prop("updated_at", domain.DateTimeType()),
		domain.Prop("created_at", domain.DateTimeType()),
		domain.Prop("closed_at", domain.DateTimeType()),
		domain.Prop("merged_at", domain.DateTimeType()),
		domain.Prop("state", domain.StringType()),
		domain.Prop("title", domain.StringType()),
		domain.Prop("locked", domain.BooleanType()),
		domain.Prop("author_association", domain.StringType()),
		domain.Prop("body", domain.StringType()),
		domain.Prop("merge_commit_sha", domain.StringType()),
		domain.Prop("draft", domain.BooleanType()),
		domain.Prop("commits_url", domain.StringType()),
		domain.Prop("review_comments_url", domain.StringType()),
		domain.Prop("review_comment_url", domain.StringType()),
		domain.Prop("comments_url", domain.StringType()),
		domain.Prop("statuses_url", domain.StringType()),
		domain.Prop("user", userType()),
		domain.Prop("labels", domain.ArrayType(labelType())),
		domain.Prop("assignee", userType()),
		domain.Prop("assignees", domain.ArrayType(userType())),
		domain.Prop("requested_reviewers", domain.ArrayType(userType())),
		domain.Prop("milestone", milestoneType()),
		domain.Prop("head", branchRefType()),
		domain.Prop("base", branchRefType()),
	)
}

func userSchema() *domain.Schema {
	return domain.NewSchema(
		domain.Prop("username", domain.StringType()),
		domain.Prop("user_id", domain.StringType()),
		domain.Prop("login", domain.StringType()),
		domain.Prop("id", domain.IntegerType()),
		domain.Prop("node_id", domain.StringType()),
		domain.Prop("avatar_url", domain.StringType()),
		domain.Prop("gravatar_id", domain.StringType()),
		domain.Prop("html_url", domain.StringType()),
		domain.Prop("type", domain.StringType()),
		domain.Prop("site_admin", domain.BooleanType()),
		domain.Prop("name", domain.StringType()),
		domain.Prop("company", domain.StringType()),
		domain.Prop("blog", domain.StringType()),
		domain.Prop("location", domain.StringType()),
		domain.Prop("email", domain.StringType()),
		domain.Prop("hireable", domain.BooleanType()),
		domain.Prop("bio", domain.StringType()),
		domain.Prop("twitter_username", domain.StringType()),
		domain.Prop("public_repos", domain.IntegerType()),
		domain.Prop("public_gists", domain.IntegerType()),
		domain.Prop("followers", domain.IntegerType()),
		domain.Prop("following", domain.IntegerType()),
		domain.Prop("created_at", domain.DateTimeType()),
		domain.Prop("updated_at", domain.DateTimeType()),
	)
}

func starredSchema() *domain.Schema {
	return domain.NewSchema(
		domain.Prop("username", domain.StringType()),
		domain.Prop("user_id", domain.StringType()),
		domain.Prop("repo_id", domain.IntegerType()),
		domain.Prop("repo_full_name", domain.StringType()),
		domain.Prop("starred_at", domain.DateTimeType()),
		domain.Prop("repo", domain.ObjectType(repositoryProps()...)),
	)
}
