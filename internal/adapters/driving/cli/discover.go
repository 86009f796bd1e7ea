package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Print the catalog of active streams",
	Long: `Resolves the streams activated by the configuration's query mode and
prints them as a catalog on stdout, with their schemas and selection.`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

// catalog is the document printed by discover.
type catalog struct {
	Streams []domain.CatalogEntry `json:"streams"`
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	if newSyncOrchestrator == nil {
		return errors.New("sync service not configured")
	}
	if configPath == "" {
		return errors.New("--config is required")
	}

	orch, closeFn, err := newSyncOrchestrator(configPath, stateDir, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeQuietly(closeFn)

	entries, err := orch.Discover(cmd.Context())
	if err != nil {
		return fmt.Errorf("discover failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(catalog{Streams: entries})
}
