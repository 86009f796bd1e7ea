package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tap-github/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tap-github/internal/core/domain"
)

func TestStateService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStateStore()
	runs := memory.NewRunLog()
	svc := NewStateService(store, runs)

	require.NoError(t, store.Save(ctx, domain.Bookmark{Stream: "issues", Partition: "org=a&repo=b", Value: ts(1)}))
	require.NoError(t, store.Save(ctx, domain.Bookmark{Stream: "starred", Partition: "username=octocat", Value: ts(2)}))
	require.NoError(t, runs.StartRun(ctx, domain.SyncRun{ID: "r1", StartedAt: time.Now()}))

	t.Run("bookmarks", func(t *testing.T) {
		list, err := svc.Bookmarks(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("reset one stream", func(t *testing.T) {
		require.NoError(t, svc.Reset(ctx, "issues"))

		list, err := svc.Bookmarks(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "starred", list[0].Stream)
	})

	t.Run("runs", func(t *testing.T) {
		list, err := svc.Runs(ctx, 5)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "r1", list[0].ID)

		_, err = svc.Runs(ctx, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("without run log", func(t *testing.T) {
		list, err := NewStateService(store, nil).Runs(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
