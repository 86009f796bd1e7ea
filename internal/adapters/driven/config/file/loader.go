package file

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/logger"
)

// TokenEnv is consulted when the configuration has no auth_token.
const TokenEnv = "GITHUB_TOKEN"

// knownKeys are the top-level keys of the configuration file.
var knownKeys = map[string]bool{
	"searches":               true,
	"repositories":           true,
	"organizations":          true,
	"user_usernames":         true,
	"user_ids":               true,
	"start_date":             true,
	"exclude":                true,
	"skip_parent_streams":    true,
	"auth_token":             true,
	"additional_auth_tokens": true,
	"credential_sets":        true,
	"rate_limit_buffer":      true,
	"user_agent":             true,
	"api_url":                true,
	"validate_records":       true,
}

// LoadTapConfig reads the configuration file at path.
func LoadTapConfig(path string) (*domain.TapConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config: %w", domain.ErrConfiguration, err)
	}
	cfg, err := ParseTapConfig(data, isTOML(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseTapConfig decodes a JSON or TOML configuration document.
func ParseTapConfig(data []byte, asTOML bool) (*domain.TapConfig, error) {
	var (
		raw map[string]any
		cfg domain.TapConfig
	)
	if asTOML {
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: parsing TOML: %w", domain.ErrConfiguration, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: decoding TOML: %w", domain.ErrConfiguration, err)
		}
	} else {
		if len(bytes.TrimSpace(data)) == 0 {
			data = []byte("{}")
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: parsing JSON: %w", domain.ErrConfiguration, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: decoding JSON: %w", domain.ErrConfiguration, err)
		}
	}

	keys := make([]string, 0, len(raw))
	var unknown []string
	for k := range raw {
		keys = append(keys, k)
		if !knownKeys[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		logger.Warn("Ignoring unknown config keys: %s", strings.Join(unknown, ", "))
	}
	cfg.SetPresentKeys(keys)

	if cfg.AuthToken == "" {
		if token := os.Getenv(TokenEnv); token != "" {
			logger.Debug("Using auth token from %s", TokenEnv)
			cfg.AuthToken = token
		}
	}

	return &cfg, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
