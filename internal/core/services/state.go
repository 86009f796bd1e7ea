package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/ports/driven"
	"github.com/custodia-labs/tap-github/internal/core/ports/driving"
	"github.com/custodia-labs/tap-github/internal/logger"
)

// Ensure StateService implements the interface.
var _ driving.StateService = (*StateService)(nil)

// StateService exposes persisted bookmarks and the run log.
type StateService struct {
	store driven.StateStore
	runs  driven.RunLog
}

// NewStateService creates a new state service. runs may be nil.
func NewStateService(store driven.StateStore, runs driven.RunLog) *StateService {
	return &StateService{store: store, runs: runs}
}

// Bookmarks returns every stored bookmark.
func (s *StateService) Bookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	bookmarks, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return bookmarks, nil
}

// Reset deletes the bookmarks of a stream, or of every stream when stream is empty.
func (s *StateService) Reset(ctx context.Context, stream string) error {
	if err := s.store.Delete(ctx, stream); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	if stream == "" {
		logger.Info("Reset state of all streams")
	} else {
		logger.Info("Reset state of stream %s", stream)
	}
	return nil
}

// Runs returns the most recent sync runs.
func (s *StateService) Runs(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}
	runs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
