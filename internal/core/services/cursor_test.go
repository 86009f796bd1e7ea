package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tap-github/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tap-github/internal/core/domain"
)

func TestCursorTracker(t *testing.T) {
	ctx := context.Background()
	issues := newTestStreams().issues
	pctx := domain.NewContext(map[string]any{"org": "acme", "repo": "tap", "repo_id": 1})

	t.Run("floor falls back to start date", func(t *testing.T) {
		tracker := NewCursorTracker(memory.NewStateStore(), ts(10))

		c, err := tracker.Open(ctx, issues, pctx, true)

		require.NoError(t, err)
		assert.Equal(t, ts(10), c.Since())
		assert.True(t, c.BelowFloor(domain.Record{"updated_at": ts(9)}))
		assert.False(t, c.BelowFloor(domain.Record{"updated_at": ts(10)}))
		assert.False(t, c.BelowFloor(domain.Record{"title": "no key"}))
	})

	t.Run("bookmark wins over start date", func(t *testing.T) {
		store := memory.NewStateStore()
		require.NoError(t, store.Save(ctx, domain.Bookmark{Stream: "issues", Partition: "org=acme&repo=tap", Value: ts(50)}))

		c, err := NewCursorTracker(store, ts(10)).Open(ctx, issues, pctx, true)

		require.NoError(t, err)
		assert.Equal(t, ts(50), c.Since())
	})

	t.Run("commits the maximum once per advance", func(t *testing.T) {
		store := memory.NewStateStore()
		require.NoError(t, store.Save(ctx, domain.Bookmark{Stream: "issues", Partition: "org=acme&repo=tap", Value: ts(50)}))
		c, err := NewCursorTracker(store, "").Open(ctx, issues, pctx, true)
		require.NoError(t, err)

		c.Observe(domain.Record{"updated_at": ts(40)})
		b, err := c.Commit(ctx)
		require.NoError(t, err)
		assert.Nil(t, b, "lower values never move the bookmark")

		c.Observe(domain.Record{"updated_at": ts(70)})
		c.Observe(domain.Record{"updated_at": ts(60)})
		c.Observe(domain.Record{"updated_at": nil})
		b, err = c.Commit(ctx)
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, ts(70), b.Value)
		assert.Equal(t, []domain.PartitionPart{{Name: "org", Value: "acme"}, {Name: "repo", Value: "tap"}}, b.Context)

		stored, err := store.Get(ctx, "issues", "org=acme&repo=tap")
		require.NoError(t, err)
		assert.Equal(t, ts(70), stored.Value)

		b, err = c.Commit(ctx)
		require.NoError(t, err)
		assert.Nil(t, b)
	})

	t.Run("context-only cursors never persist", func(t *testing.T) {
		store := memory.NewStateStore()
		c, err := NewCursorTracker(store, "").Open(ctx, issues, pctx, false)
		require.NoError(t, err)

		c.Observe(domain.Record{"updated_at": ts(1)})
		b, err := c.Commit(ctx)

		require.NoError(t, err)
		assert.Nil(t, b)
		list, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("full table streams", func(t *testing.T) {
		repos := newTestStreams().repositories
		c, err := NewCursorTracker(memory.NewStateStore(), ts(1)).Open(ctx, repos, pctx, true)
		require.NoError(t, err)

		c.Observe(domain.Record{"updated_at": ts(2)})
		b, err := c.Commit(ctx)

		require.NoError(t, err)
		assert.Nil(t, b)
		assert.Empty(t, c.Since())
	})

	t.Run("missing partitioning key", func(t *testing.T) {
		_, err := NewCursorTracker(memory.NewStateStore(), "").Open(ctx, issues, domain.NewContext(map[string]any{"org": "acme"}), true)

		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}
