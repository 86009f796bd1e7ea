// Command tap-github extracts GitHub data as Singer messages.
package main

import (
	"io"
	"os"

	"github.com/custodia-labs/tap-github/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tap-github/internal/adapters/driven/sink/singer"
	"github.com/custodia-labs/tap-github/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tap-github/internal/adapters/driving/cli"
	"github.com/custodia-labs/tap-github/internal/connectors/github"
	"github.com/custodia-labs/tap-github/internal/core/ports/driving"
	"github.com/custodia-labs/tap-github/internal/core/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetServices(newSyncOrchestrator, newStateService)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

func newSyncOrchestrator(configPath, stateDir string, out io.Writer) (driving.SyncOrchestrator, func() error, error) {
	cfg, err := file.LoadTapConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	client, err := github.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := sqlite.NewStore(stateDir)
	if err != nil {
		return nil, nil, err
	}

	orch := services.NewSyncOrchestrator(
		cfg,
		github.Families(),
		client,
		singer.NewSink(out),
		store.StateStore(),
		store.RunLog(),
	)
	return orch, store.Close, nil
}

func newStateService(stateDir string) (driving.StateService, func() error, error) {
	store, err := sqlite.NewStore(stateDir)
	if err != nil {
		return nil, nil, err
	}
	return services.NewStateService(store.StateStore(), store.RunLog()), store.Close, nil
}
