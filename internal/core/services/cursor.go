package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/ports/driven"
)

// CursorTracker opens per-partition replication cursors against a state store.
type CursorTracker struct {
	store     driven.StateStore
	startDate string
}

// NewCursorTracker creates a tracker. startDate is the floor of partitions
// without a bookmark and may be empty.
func NewCursorTracker(store driven.StateStore, startDate string) *CursorTracker {
	return &CursorTracker{store: store, startDate: startDate}
}

// partitionCursor tracks the maximum replication value of one partition.
type partitionCursor struct {
	store   driven.StateStore
	stream  *domain.Stream
	key     domain.PartitionKey
	floor   string
	max     string
	dirty   bool
	persist bool
}

// Open reads the partition's bookmark. persist is false for streams running
// in context-only mode, whose cursors never write bookmarks.
func (t *CursorTracker) Open(ctx context.Context, stream *domain.Stream, pctx domain.Context, persist bool) (*partitionCursor, error) {
	c := &partitionCursor{store: t.store, stream: stream, persist: persist}
	if !stream.IsIncremental() {
		return c, nil
	}

	key, err := pctx.PartitionKey(stream.PartitioningKeys(pctx))
	if err != nil {
		return nil, err
	}
	c.key = key

	bookmark, err := t.store.Get(ctx, stream.Name, key.String())
	switch {
	case err == nil:
		c.floor = bookmark.Value
		c.max = bookmark.Value
	case errors.Is(err, domain.ErrNotFound):
		c.floor = t.startDate
	default:
		return nil, fmt.Errorf("get bookmark %s %s: %w", stream.Name, key, err)
	}
	return c, nil
}

// Since returns the lower bound of the partition, or "" when there is none.
func (c *partitionCursor) Since() string {
	return c.floor
}

// BelowFloor reports whether a record is older than the starting floor.
// Records equal to the floor are kept.
func (c *partitionCursor) BelowFloor(rec domain.Record) bool {
	if c.floor == "" || !c.stream.IsIncremental() {
		return false
	}
	v, ok := rec[c.stream.ReplicationKey]
	if !ok || v == nil {
		return false
	}
	return domain.CompareReplicationValues(domain.FormatValue(v), c.floor) < 0
}

// Observe raises the partition maximum to the record's replication value.
func (c *partitionCursor) Observe(rec domain.Record) {
	if !c.stream.IsIncremental() {
		return
	}
	v, ok := rec[c.stream.ReplicationKey]
	if !ok || v == nil {
		return
	}
	s := domain.FormatValue(v)
	if c.max == "" || domain.CompareReplicationValues(s, c.max) > 0 {
		c.max = s
		c.dirty = true
	}
}

// Commit persists the maximum when it advanced since the last commit.
// It returns the written bookmark, or nil when nothing was written.
func (c *partitionCursor) Commit(ctx context.Context) (*domain.Bookmark, error) {
	if !c.persist || !c.dirty {
		return nil, nil
	}
	bookmark := domain.Bookmark{
		Stream:         c.stream.Name,
		Partition:      c.key.String(),
		Context:        c.key.Parts,
		ReplicationKey: c.stream.ReplicationKey,
		Value:          c.max,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := c.store.Save(ctx, bookmark); err != nil {
		return nil, fmt.Errorf("save bookmark %s %s: %w", c.stream.Name, c.key, err)
	}
	c.dirty = false
	return &bookmark, nil
}
