package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/ports/driven"
)

// Ensure RunLog implements the interface.
var _ driven.RunLog = (*RunLog)(nil)

// RunLog is an in-memory implementation of driven.RunLog.
type RunLog struct {
	mu   sync.RWMutex
	runs map[string]domain.SyncRun
}

// NewRunLog creates a new in-memory run log.
func NewRunLog() *RunLog {
	return &RunLog{runs: make(map[string]domain.SyncRun)}
}

// StartRun records a run as running.
func (l *RunLog) StartRun(_ context.Context, run domain.SyncRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	run.Status = domain.RunRunning
	l.runs[run.ID] = run
	return nil
}

// FinishRun records the outcome of a run.
func (l *RunLog) FinishRun(_ context.Context, run domain.SyncRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.runs[run.ID]; !ok {
		return domain.ErrNotFound
	}
	l.runs[run.ID] = run
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (l *RunLog) ListRuns(_ context.Context, limit int) ([]domain.SyncRun, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.SyncRun, 0, len(l.runs))
	for _, r := range l.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
