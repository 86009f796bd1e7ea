package github

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/logger"
)

const (
	// DefaultPerPage is the page size requested from list endpoints.
	DefaultPerPage = 100

	// SearchResultCap is the number of results the search API serves per query.
	SearchResultCap = 1000
)

// linkRegex matches Link header entries: <url>; rel="type".
var linkRegex = regexp.MustCompile(`<([^>]+)>;\s*rel="([^"]+)"`)

// ParseNextLink extracts the "next" URL from a Link header.
// Returns empty string if no next link is found.
func ParseNextLink(linkHeader string) string {
	return ParseAllLinks(linkHeader)["next"]
}

// ParseAllLinks extracts all URLs from a Link header by relationship type.
// Returns a map of rel type to URL.
func ParseAllLinks(linkHeader string) map[string]string {
	links := make(map[string]string)
	if linkHeader == "" {
		return links
	}

	parts := strings.Split(linkHeader, ",")
	for _, part := range parts {
		matches := linkRegex.FindStringSubmatch(strings.TrimSpace(part))
		if len(matches) == 3 {
			links[matches[2]] = matches[1]
		}
	}

	return links
}

// LinkPaginator walks page-numbered GitHub list endpoints by following
// the rel="next" entry of the Link header.
type LinkPaginator struct {
	// PerPage is the page size. Zero means DefaultPerPage.
	PerPage int

	// MaxResults stops pagination once this many results were fetched.
	// Zero means no ceiling.
	MaxResults int
}

// Ensure LinkPaginator implements the interface.
var _ domain.Paginator = LinkPaginator{}

// Apply sets per_page and, after the first page, page.
func (p LinkPaginator) Apply(query url.Values, token domain.PageToken) {
	perPage := p.PerPage
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	query.Set("per_page", strconv.Itoa(perPage))
	if token != "" {
		query.Set("page", string(token))
	}
}

// Next returns the page number of the next link, or "" on the last page or
// once the result ceiling is reached.
func (p LinkPaginator) Next(page domain.Page) domain.PageToken {
	next := nextPageNumber(page.Header.Get("Link"))
	if next == "" {
		return ""
	}
	if p.MaxResults > 0 && page.Fetched >= p.MaxResults {
		logger.Warn("Result cap of %d reached; further results are not fetched", p.MaxResults)
		return ""
	}
	return domain.PageToken(next)
}

// nextPageNumber returns the page query parameter of the next link.
func nextPageNumber(linkHeader string) string {
	next := ParseNextLink(linkHeader)
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get("page")
}
