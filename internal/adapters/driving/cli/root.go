package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tap-github/internal/core/ports/driving"
	"github.com/custodia-labs/tap-github/internal/logger"
)

// SyncFactory builds the sync orchestrator for a configuration file.
// Messages are written to out. The returned func releases the state store.
type SyncFactory func(configPath, stateDir string, out io.Writer) (driving.SyncOrchestrator, func() error, error)

// StateFactory builds the state service for a state directory.
type StateFactory func(stateDir string) (driving.StateService, func() error, error)

var (
	version = "dev"

	// Persistent flags
	verbose    bool
	configPath string
	stateDir   string

	// Service factories, set by SetServices
	newSyncOrchestrator SyncFactory
	newStateService     StateFactory
)

var rootCmd = &cobra.Command{
	Use:   "tap-github",
	Short: "Extract GitHub data as Singer messages",
	Long: `tap-github extracts repositories, issues, pull requests, comments, READMEs,
users and starred repositories from the GitHub REST API.

Exactly one of searches, repositories, organizations, user_usernames or
user_ids must be set in the configuration. Bookmarks are kept in a local
SQLite database so later runs only fetch what changed.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the JSON or TOML configuration")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "directory of the state database (default ~/.tap-github)")
}

// SetServices sets the factories the commands build their services with.
func SetServices(syncFactory SyncFactory, stateFactory StateFactory) {
	newSyncOrchestrator = syncFactory
	newStateService = stateFactory
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// closeQuietly releases a service, logging failures.
func closeQuietly(closeFn func() error) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		logger.Warn("Closing state store: %v", err)
	}
}
