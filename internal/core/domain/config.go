package domain

import (
	"fmt"
	"strings"
	"time"
)

// QueryMode selects what the tap extracts. Exactly one mode is active per run.
type QueryMode string

const (
	ModeSearches      QueryMode = "searches"
	ModeRepositories  QueryMode = "repositories"
	ModeOrganizations QueryMode = "organizations"
	ModeUserUsernames QueryMode = "user_usernames"
	ModeUserIDs       QueryMode = "user_ids"
)

// AllQueryModes returns every recognised query mode in declaration order.
func AllQueryModes() []QueryMode {
	return []QueryMode{ModeSearches, ModeRepositories, ModeOrganizations, ModeUserUsernames, ModeUserIDs}
}

// DefaultCredentialSet is the name of the credential set built from
// auth_token and additional_auth_tokens.
const DefaultCredentialSet = "default"

// DefaultRateLimitBuffer is the number of requests kept in reserve per token.
const DefaultRateLimitBuffer = 1000

// SearchQuery is one named search of the searches mode.
type SearchQuery struct {
	Name  string `json:"name" toml:"name"`
	Query string `json:"query" toml:"query"`
}

// TapConfig is the tap configuration.
type TapConfig struct {
	// Query modes. Exactly one key must be present.
	Searches      []SearchQuery `json:"searches,omitempty" toml:"searches,omitempty"`
	Repositories  []string      `json:"repositories,omitempty" toml:"repositories,omitempty"`
	Organizations []string      `json:"organizations,omitempty" toml:"organizations,omitempty"`
	UserUsernames []string      `json:"user_usernames,omitempty" toml:"user_usernames,omitempty"`
	UserIDs       []string      `json:"user_ids,omitempty" toml:"user_ids,omitempty"`

	// StartDate is the incremental floor of partitions without a bookmark (RFC 3339).
	StartDate string `json:"start_date,omitempty" toml:"start_date,omitempty"`

	// Exclude lists streams whose records are not emitted. Excluded streams
	// still run when a descendant is selected.
	Exclude []string `json:"exclude,omitempty" toml:"exclude,omitempty"`

	// SkipParentStreams suppresses record emission of root streams; they run
	// only to derive contexts for their children.
	SkipParentStreams bool `json:"skip_parent_streams,omitempty" toml:"skip_parent_streams,omitempty"`

	// Authentication.
	AuthToken            string              `json:"auth_token,omitempty" toml:"auth_token,omitempty"`
	AdditionalAuthTokens []string            `json:"additional_auth_tokens,omitempty" toml:"additional_auth_tokens,omitempty"`
	CredentialSets       map[string][]string `json:"credential_sets,omitempty" toml:"credential_sets,omitempty"`
	RateLimitBuffer      int                 `json:"rate_limit_buffer,omitempty" toml:"rate_limit_buffer,omitempty"`

	// Transport.
	UserAgent string `json:"user_agent,omitempty" toml:"user_agent,omitempty"`
	APIURL    string `json:"api_url,omitempty" toml:"api_url,omitempty"`

	// ValidateRecords checks every record against its stream schema before emission.
	ValidateRecords bool `json:"validate_records,omitempty" toml:"validate_records,omitempty"`

	// present records the top-level keys found in the configuration source.
	// Nil for configurations built in code, in which case non-nil lists count as present.
	present map[string]bool
}

// SetPresentKeys records which top-level keys the configuration source contained.
func (c *TapConfig) SetPresentKeys(keys []string) {
	c.present = make(map[string]bool, len(keys))
	for _, k := range keys {
		c.present[k] = true
	}
}

// HasKey reports whether the configuration contains the query-mode key.
func (c *TapConfig) HasKey(mode QueryMode) bool {
	if c.present != nil {
		return c.present[string(mode)]
	}
	switch mode {
	case ModeSearches:
		return c.Searches != nil
	case ModeRepositories:
		return c.Repositories != nil
	case ModeOrganizations:
		return c.Organizations != nil
	case ModeUserUsernames:
		return c.UserUsernames != nil
	case ModeUserIDs:
		return c.UserIDs != nil
	}
	return false
}

// PresentModes returns the query modes present in the configuration.
func (c *TapConfig) PresentModes() []QueryMode {
	var modes []QueryMode
	for _, m := range AllQueryModes() {
		if c.HasKey(m) {
			modes = append(modes, m)
		}
	}
	return modes
}

// Mode returns the single active query mode.
func (c *TapConfig) Mode() (QueryMode, error) {
	modes := c.PresentModes()
	if len(modes) != 1 {
		names := make([]string, 0, len(AllQueryModes()))
		for _, m := range AllQueryModes() {
			names = append(names, string(m))
		}
		return "", fmt.Errorf("%w: exactly one of the following options is required: %s (found %d)",
			ErrConfiguration, strings.Join(names, ", "), len(modes))
	}
	return modes[0], nil
}

// IsExcluded reports whether the stream is named in exclude.
func (c *TapConfig) IsExcluded(stream string) bool {
	for _, name := range c.Exclude {
		if name == stream {
			return true
		}
	}
	return false
}

// StartTime parses StartDate. The zero time is returned when it is unset.
func (c *TapConfig) StartTime() (time.Time, error) {
	if c.StartDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, c.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start_date %q is not RFC 3339", ErrConfiguration, c.StartDate)
	}
	return t, nil
}

// Credentials returns every credential set: the default set built from
// auth_token and additional_auth_tokens, plus the named sets.
func (c *TapConfig) Credentials() map[string][]string {
	sets := make(map[string][]string, len(c.CredentialSets)+1)
	var defaults []string
	if c.AuthToken != "" {
		defaults = append(defaults, c.AuthToken)
	}
	for _, t := range c.AdditionalAuthTokens {
		if t != "" {
			defaults = append(defaults, t)
		}
	}
	sets[DefaultCredentialSet] = defaults
	for name, tokens := range c.CredentialSets {
		if name == DefaultCredentialSet {
			sets[name] = append(sets[name], tokens...)
			continue
		}
		sets[name] = tokens
	}
	return sets
}

// Validate checks the configuration beyond the query mode.
func (c *TapConfig) Validate() error {
	if _, err := c.Mode(); err != nil {
		return err
	}
	for i, s := range c.Searches {
		if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Query) == "" {
			return fmt.Errorf("%w: searches[%d] requires both name and query", ErrConfiguration, i)
		}
	}
	if _, err := c.StartTime(); err != nil {
		return err
	}
	if c.RateLimitBuffer < 0 {
		return fmt.Errorf("%w: rate_limit_buffer must not be negative", ErrConfiguration)
	}
	return nil
}
