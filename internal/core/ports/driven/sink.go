package driven

import (
	"context"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

// RecordSink receives the tap's output.
// A write that returns nil has been accepted; the core advances bookmarks
// only after every record of a page was accepted.
type RecordSink interface {
	// WriteSchema announces a stream before its first record.
	WriteSchema(ctx context.Context, entry domain.CatalogEntry) error

	// WriteRecord emits one shaped record.
	WriteRecord(ctx context.Context, stream string, record domain.Record) error

	// WriteState emits a bookmark after it was persisted.
	WriteState(ctx context.Context, bookmark domain.Bookmark) error
}
