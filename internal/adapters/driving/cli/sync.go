package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/ports/driving"
)

// progressInterval is how often a running sync reports progress.
var progressInterval = 2 * time.Second

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Extract the selected streams",
	Long: `Runs every selected stream and writes SCHEMA, RECORD and STATE messages
to stdout. Incremental streams resume from the bookmarks stored by earlier
runs. The command fails if any partition failed, after every other
partition has been extracted.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if newSyncOrchestrator == nil {
		return errors.New("sync service not configured")
	}
	if configPath == "" {
		return errors.New("--config is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, closeFn, err := newSyncOrchestrator(configPath, stateDir, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeQuietly(closeFn)

	report, err := syncWithProgress(ctx, cmd, orch)
	if report != nil {
		printReport(cmd.ErrOrStderr(), report)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

type syncResult struct {
	report *domain.SyncReport
	err    error
}

// syncWithProgress runs sync while displaying progress updates.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
) (*domain.SyncReport, error) {
	// Start sync in goroutine
	resultCh := make(chan syncResult, 1)
	go func() {
		report, err := syncOrch.Sync(ctx)
		resultCh <- syncResult{report: report, err: err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case res := <-resultCh:
			return res.report, res.err
		case <-ticker.C:
			// Check progress (ignore status error - best effort)
			status, statusErr := syncOrch.Status(ctx)
			if statusErr == nil && status != nil && status.Running && status.RecordsEmitted > lastCount {
				cmd.PrintErrf("Syncing %s... %d records (%d errors)\n",
					status.Stream, status.RecordsEmitted, status.ErrorCount)
				lastCount = status.RecordsEmitted
			}
		}
	}
}

// printReport writes the per-stream counters of a run.
func printReport(w io.Writer, report *domain.SyncReport) {
	names := make([]string, 0, len(report.Streams))
	for name := range report.Streams {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "Run %s finished in %s: %d records\n",
		report.RunID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond), report.Records())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STREAM\tRECORDS\tPARTITIONS\tSKIPPED\tREQUESTS\tFAILED")
	for _, name := range names {
		s := report.Streams[name]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			name, s.Records, s.Partitions, s.Skipped, s.Requests, len(s.Failures))
	}
	tw.Flush()

	for _, name := range names {
		for _, f := range report.Streams[name].Failures {
			fmt.Fprintf(w, "  %v\n", f)
		}
	}
}
