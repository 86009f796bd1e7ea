package driving

import (
	"context"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

// StateService exposes persisted replication state.
type StateService interface {
	// Bookmarks returns every stored bookmark.
	Bookmarks(ctx context.Context) ([]domain.Bookmark, error)

	// Reset deletes the bookmarks of a stream, or of every stream when stream is empty.
	Reset(ctx context.Context, stream string) error

	// Runs returns the most recent sync runs.
	Runs(ctx context.Context, limit int) ([]domain.SyncRun, error)
}
