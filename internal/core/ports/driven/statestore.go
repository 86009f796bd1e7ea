package driven

import (
	"context"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

// StateStore persists partition bookmarks.
type StateStore interface {
	// Get retrieves the bookmark of a partition.
	// Returns domain.ErrNotFound when the partition has none.
	Get(ctx context.Context, stream, partition string) (*domain.Bookmark, error)

	// Save stores or replaces a bookmark.
	Save(ctx context.Context, bookmark domain.Bookmark) error

	// List returns every bookmark ordered by stream then partition.
	List(ctx context.Context) ([]domain.Bookmark, error)

	// Delete removes every bookmark of a stream. An empty stream removes all bookmarks.
	Delete(ctx context.Context, stream string) error
}

// RunLog records sync runs.
type RunLog interface {
	// StartRun records a run as running.
	StartRun(ctx context.Context, run domain.SyncRun) error

	// FinishRun records the outcome of a run.
	FinishRun(ctx context.Context, run domain.SyncRun) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.SyncRun, error)
}
