// Package github implements the GitHub REST side of the tap.
//
// It provides two things to the core: the stream families that describe what
// to extract, and a [driven.Transport] that performs the requests.
//
// # Streams
//
// The repository family is activated by the searches, repositories and
// organizations query modes:
//
//	repositories
//	├── readme
//	├── issues
//	│   └── issue_comments
//	└── pull_requests
//
// The user family is activated by user_usernames and user_ids:
//
//	users
//	└── starred
//
// Root streams pick their endpoint from the active mode. Child streams resolve
// their path placeholders from the context their parent record derived.
//
// # Transport
//
// [Client] wraps one go-github client per token. Tokens are grouped into
// credential sets; the default set holds auth_token and
// additional_auth_tokens. Each token has its own [RateLimiter], which
// throttles proactively and tracks the X-RateLimit headers. A token whose
// remaining quota drops below rate_limit_buffer is rotated out until its
// reset time.
//
// Transient failures (5xx, rate limits, network errors) are retried with
// exponential backoff. Other HTTP errors surface as [APIError], which
// unwraps to the domain sentinels.
//
// # Pagination
//
// List endpoints are walked by [LinkPaginator], which follows the page
// number of the rel="next" Link entry. The search API stops after
// [SearchResultCap] results.
package github
