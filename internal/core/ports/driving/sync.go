package driving

import (
	"context"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

// SyncOrchestrator discovers and synchronises the configured streams.
type SyncOrchestrator interface {
	// Discover returns the catalog of streams active for the configuration.
	Discover(ctx context.Context) ([]domain.CatalogEntry, error)

	// Sync extracts every selected stream. The returned report is non-nil
	// whenever planning succeeded, even if some partitions failed.
	Sync(ctx context.Context) (*domain.SyncReport, error)

	// Status returns the progress of the running sync.
	Status(ctx context.Context) (*SyncStatus, error)
}

// SyncStatus represents the current state of a sync operation.
type SyncStatus struct {
	// RunID identifies the run.
	RunID string

	// Running indicates if sync is currently in progress.
	Running bool

	// Stream is the stream currently being driven.
	Stream string

	// RecordsEmitted is the count of records emitted so far.
	RecordsEmitted int

	// ErrorCount is the number of failed partitions.
	ErrorCount int
}
