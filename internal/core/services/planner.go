package services

import (
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

// PlanPartitions returns the partitions of a root stream for the active
// query mode. A stream that declares no modes has no partitions and is
// driven once with the null context.
func PlanPartitions(stream *domain.Stream, cfg *domain.TapConfig) ([]domain.Context, error) {
	if len(stream.Modes) == 0 {
		return nil, nil
	}
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	if !slices.Contains(stream.Modes, mode) {
		return nil, fmt.Errorf("%w: stream %s does not support query mode %s", domain.ErrConfiguration, stream.Name, mode)
	}

	var partitions []domain.Context
	switch mode {
	case domain.ModeSearches:
		for _, q := range cfg.Searches {
			partitions = append(partitions, domain.NewContext(map[string]any{
				"search_name":  q.Name,
				"search_query": q.Query,
			}))
		}
	case domain.ModeRepositories:
		for _, entry := range cfg.Repositories {
			org, repo, err := splitRepository(entry)
			if err != nil {
				return nil, err
			}
			partitions = append(partitions, domain.NewContext(map[string]any{"org": org, "repo": repo}))
		}
	case domain.ModeOrganizations:
		for _, org := range cfg.Organizations {
			partitions = append(partitions, domain.NewContext(map[string]any{"org": org}))
		}
	case domain.ModeUserUsernames:
		for _, username := range cfg.UserUsernames {
			partitions = append(partitions, domain.NewContext(map[string]any{"username": username}))
		}
	case domain.ModeUserIDs:
		for _, id := range cfg.UserIDs {
			partitions = append(partitions, domain.NewContext(map[string]any{"user_id": id}))
		}
	}
	return partitions, nil
}

// splitRepository splits "org/repo" verbatim. Casing is left alone.
func splitRepository(entry string) (org, repo string, err error) {
	org, repo, ok := strings.Cut(entry, "/")
	if !ok || org == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("%w: repository %q must have the form org/repo", domain.ErrConfiguration, entry)
	}
	return org, repo, nil
}
