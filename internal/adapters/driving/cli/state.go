package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and reset replication state",
	Long:  `Lists the stored partition bookmarks and sync runs, or resets bookmarks so the next sync starts over.`,
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List partition bookmarks",
	Args:  cobra.NoArgs,
	RunE:  runStateList,
}

var stateRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent sync runs",
	Args:  cobra.NoArgs,
	RunE:  runStateRuns,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset [stream]",
	Short: "Delete bookmarks",
	Long: `Deletes the bookmarks of one stream. With --all, deletes every bookmark.
The next sync extracts the affected partitions from start_date.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStateReset,
}

var (
	resetAll  bool
	runsLimit int
)

func init() {
	stateResetCmd.Flags().BoolVar(&resetAll, "all", false, "delete the bookmarks of every stream")
	stateRunsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "number of runs to show")

	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateRunsCmd)
	stateCmd.AddCommand(stateResetCmd)
	rootCmd.AddCommand(stateCmd)
}

func runStateList(cmd *cobra.Command, _ []string) error {
	if newStateService == nil {
		return errors.New("state service not configured")
	}
	svc, closeFn, err := newStateService(stateDir)
	if err != nil {
		return err
	}
	defer closeQuietly(closeFn)

	bookmarks, err := svc.Bookmarks(cmd.Context())
	if err != nil {
		return err
	}
	if len(bookmarks) == 0 {
		cmd.Println("No bookmarks.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STREAM\tPARTITION\tKEY\tVALUE\tUPDATED")
	for _, b := range bookmarks {
		partition := b.Partition
		if partition == "" {
			partition = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			b.Stream, partition, b.ReplicationKey, b.Value, b.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runStateRuns(cmd *cobra.Command, _ []string) error {
	if newStateService == nil {
		return errors.New("state service not configured")
	}
	svc, closeFn, err := newStateService(stateDir)
	if err != nil {
		return err
	}
	defer closeQuietly(closeFn)

	runs, err := svc.Runs(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		cmd.Println("No runs.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tRECORDS\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Records, firstLine(r.Error))
	}
	return tw.Flush()
}

func runStateReset(cmd *cobra.Command, args []string) error {
	if newStateService == nil {
		return errors.New("state service not configured")
	}

	var stream string
	switch {
	case len(args) == 1 && resetAll:
		return fmt.Errorf("%w: pass a stream or --all, not both", domain.ErrInvalidInput)
	case len(args) == 1:
		stream = args[0]
	case !resetAll:
		return fmt.Errorf("%w: pass a stream name or --all", domain.ErrInvalidInput)
	}

	svc, closeFn, err := newStateService(stateDir)
	if err != nil {
		return err
	}
	defer closeQuietly(closeFn)

	if err := svc.Reset(cmd.Context(), stream); err != nil {
		return err
	}
	if stream == "" {
		cmd.Println("Reset all bookmarks.")
	} else {
		cmd.Printf("Reset bookmarks of %s.\n", stream)
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
