package domain

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// Record is one JSON-like row extracted from a response.
type Record map[string]any

// PageToken is an opaque cursor into a paginated resource.
// The empty token means both "before the first page" and "no further pages";
// the driver tells them apart by page position.
type PageToken string

// Page describes a response that was just parsed, for the paginator.
type Page struct {
	// Number is the 1-based index of the page within its partition.
	Number int

	// Token is the token the page was requested with.
	Token PageToken

	// Header holds the response headers (Link, X-Total-Count, ...).
	Header http.Header

	// Records is the number of records the page yielded.
	Records int

	// Fetched is the number of records yielded by this and all earlier pages.
	Fetched int
}

// Paginator decides how a stream walks its pages.
type Paginator interface {
	// Apply adds the page token and page size to the request query.
	Apply(query url.Values, token PageToken)

	// Next returns the token of the page after p, or "" when p was the last page.
	Next(p Page) PageToken
}

// Hooks is the per-stream capability table. Every hook is optional; the
// driver falls back to identity behaviour when a hook is nil.
type Hooks struct {
	// URLParams augments the query of every request of a partition.
	URLParams func(ctx Context, query url.Values)

	// Headers augments the headers of every request of a partition.
	Headers func(ctx Context, header http.Header)

	// ParseResponse replaces RecordsPath extraction for the decoded body.
	ParseResponse func(body any) ([]Record, error)

	// PostProcess reshapes a record before emission. Returning false drops it.
	PostProcess func(rec Record, ctx Context) (Record, bool)

	// ChildContext returns the fields a record contributes to the contexts of
	// this stream's children. They are layered over the record's own context.
	ChildContext func(rec Record, ctx Context) (map[string]any, error)

	// Skip is evaluated against a derived context before any request. A true
	// result ends the partition with zero requests; reason is logged.
	Skip func(ctx Context) (skip bool, reason string)
}

// Stream is the immutable definition of one extracted resource type.
// Definitions are built once from configuration and never mutated afterwards.
type Stream struct {
	// Name uniquely identifies the stream.
	Name string

	// Path is the URL path template; {name} placeholders are filled from the context.
	Path string

	// PrimaryKeys are the fields forming record identity.
	PrimaryKeys []string

	// ReplicationKey is the field used for incremental cursoring. Empty for full-table streams.
	ReplicationKey string

	// Parent is the stream whose records produce this stream's contexts.
	Parent *Stream

	// StatePartitioningKeys are the context fields that distinguish bookmarks.
	// Nil means every context field.
	StatePartitioningKeys []string

	// RecordsPath is the JSONPath locating records in the body. Empty means the
	// body is either a bare array of records or a single record.
	RecordsPath string

	// Schema declares the output fields.
	Schema *Schema

	// Modes are the query modes that partition this root stream.
	Modes []QueryMode

	// SinceParam is the query parameter carrying the incremental lower bound.
	// Empty when the API cannot filter; the driver then filters client-side.
	SinceParam string

	// CredentialSet names the credentials the transport must use. Empty means default.
	CredentialSet string

	// ToleratedStatuses are HTTP statuses that end the partition with zero records
	// instead of failing it (e.g. 404 for a repository without a README).
	ToleratedStatuses []int

	// Paginator walks the pages. Nil means a single page.
	Paginator Paginator

	// Hooks holds the stream's overrides.
	Hooks Hooks
}

// IsRoot reports whether the stream has no parent.
func (s *Stream) IsRoot() bool {
	return s.Parent == nil
}

// IsIncremental reports whether the stream tracks a replication key.
func (s *Stream) IsIncremental() bool {
	return s.ReplicationKey != ""
}

// Tolerates reports whether status ends a partition quietly.
func (s *Stream) Tolerates(status int) bool {
	return slices.Contains(s.ToleratedStatuses, status)
}

// PartitioningKeys returns the bookmark keys for ctx.
func (s *Stream) PartitioningKeys(ctx Context) []string {
	if s.StatePartitioningKeys != nil {
		return s.StatePartitioningKeys
	}
	return ctx.Keys()
}

// Ancestors returns the parent chain, nearest first.
func (s *Stream) Ancestors() []*Stream {
	var chain []*Stream
	for p := s.Parent; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	return chain
}

// placeholderRegex matches {name} placeholders in a path template.
var placeholderRegex = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Placeholders returns the placeholder names of the path template in order.
func (s *Stream) Placeholders() []string {
	matches := placeholderRegex.FindAllStringSubmatch(s.Path, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// ResolvePath substitutes every placeholder of the path template from ctx.
// Values are path-escaped. A placeholder with no context field is a
// configuration error: the context propagation produced an incomplete context.
func (s *Stream) ResolvePath(ctx Context) (string, error) {
	var missing []string
	resolved := placeholderRegex.ReplaceAllStringFunc(s.Path, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := ctx.Get(name)
		if !ok || v == nil {
			missing = append(missing, name)
			return m
		}
		return url.PathEscape(FormatValue(v))
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: stream %s path %s: unresolved placeholder(s) %s in context %s",
			ErrConfiguration, s.Name, s.Path, strings.Join(missing, ", "), ctx.Describe())
	}
	return resolved, nil
}

// StreamFamily groups streams that are activated by the same query modes,
// e.g. the repository streams for searches, repositories and organizations.
type StreamFamily struct {
	// Name is used in logs.
	Name string

	// Modes activate the family.
	Modes []QueryMode

	// Build returns the family's streams for cfg, parents before children.
	Build func(cfg *TapConfig) ([]*Stream, error)
}

// Supports reports whether mode activates the family.
func (f StreamFamily) Supports(mode QueryMode) bool {
	return slices.Contains(f.Modes, mode)
}
