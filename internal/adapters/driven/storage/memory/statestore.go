package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

type bookmarkKey struct {
	stream    string
	partition string
}

// StateStore is an in-memory implementation of driven.StateStore.
type StateStore struct {
	mu        sync.RWMutex
	bookmarks map[bookmarkKey]domain.Bookmark
}

// NewStateStore creates a new in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{
		bookmarks: make(map[bookmarkKey]domain.Bookmark),
	}
}

// Get retrieves the bookmark of a partition.
func (s *StateStore) Get(_ context.Context, stream, partition string) (*domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookmarks[bookmarkKey{stream, partition}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

// Save stores or replaces a bookmark.
func (s *StateStore) Save(_ context.Context, bookmark domain.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks[bookmarkKey{bookmark.Stream, bookmark.Partition}] = bookmark
	return nil
}

// List returns every bookmark ordered by stream then partition.
func (s *StateStore) List(_ context.Context) ([]domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Bookmark, 0, len(s.bookmarks))
	for _, b := range s.bookmarks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stream != out[j].Stream {
			return out[i].Stream < out[j].Stream
		}
		return out[i].Partition < out[j].Partition
	})
	return out, nil
}

// Delete removes every bookmark of a stream, or all bookmarks when stream is empty.
func (s *StateStore) Delete(_ context.Context, stream string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.bookmarks {
		if stream == "" || k.stream == stream {
			delete(s.bookmarks, k)
		}
	}
	return nil
}
