package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/ports/driven"
	"github.com/custodia-labs/tap-github/internal/core/ports/driving"
	"github.com/custodia-labs/tap-github/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncOrchestrator composes the active streams and runs them.
type SyncOrchestrator struct {
	cfg       *domain.TapConfig
	families  []domain.StreamFamily
	transport driven.Transport
	sink      driven.RecordSink
	state     driven.StateStore
	runs      driven.RunLog

	// Status tracking
	mu     sync.RWMutex
	status *driving.SyncStatus
}

// NewSyncOrchestrator creates a new sync orchestrator.
// runs is optional; when nil, sync runs are not logged.
func NewSyncOrchestrator(
	cfg *domain.TapConfig,
	families []domain.StreamFamily,
	transport driven.Transport,
	sink driven.RecordSink,
	state driven.StateStore,
	runs driven.RunLog,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		cfg:       cfg,
		families:  families,
		transport: transport,
		sink:      sink,
		state:     state,
		runs:      runs,
	}
}

// Discover returns the catalog of every active stream.
func (o *SyncOrchestrator) Discover(_ context.Context) ([]domain.CatalogEntry, error) {
	tree, err := ResolveStreams(o.cfg, o.families)
	if err != nil {
		return nil, err
	}
	sel := selectStreams(tree, o.cfg)

	entries := make([]domain.CatalogEntry, 0, len(tree.All))
	for _, s := range tree.All {
		entries = append(entries, catalogEntry(s, sel.selected[s.Name]))
	}
	return entries, nil
}

// Sync extracts every selected stream.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *SyncOrchestrator) Sync(ctx context.Context) (*domain.SyncReport, error) {
	// 1. Resolve streams and selection
	tree, err := ResolveStreams(o.cfg, o.families)
	if err != nil {
		return nil, err
	}
	sel := selectStreams(tree, o.cfg)

	// 2. Plan root partitions before any traffic
	type rootPlan struct {
		run        *streamRun
		partitions []domain.Context
	}
	var plans []rootPlan
	for _, root := range tree.Roots {
		if !sel.needed[root.Name] {
			continue
		}
		partitions, err := PlanPartitions(root, o.cfg)
		if err != nil {
			return nil, err
		}
		if len(root.Modes) == 0 {
			partitions = []domain.Context{{}}
		}
		plans = append(plans, rootPlan{run: buildRun(tree, sel, root), partitions: partitions})
	}

	var schemas *SchemaRegistry
	if o.cfg.ValidateRecords {
		var selected []*domain.Stream
		for _, s := range tree.All {
			if sel.selected[s.Name] {
				selected = append(selected, s)
			}
		}
		if schemas, err = NewSchemaRegistry(selected); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
	}

	// 3. Start the run
	report := domain.NewSyncReport(uuid.NewString())
	o.setStatus(&driving.SyncStatus{RunID: report.RunID, Running: true})
	defer o.clearStatus()

	if o.runs != nil {
		if err := o.runs.StartRun(ctx, domain.SyncRun{
			ID:        report.RunID,
			StartedAt: report.StartedAt,
			Status:    domain.RunRunning,
		}); err != nil {
			return nil, fmt.Errorf("start run: %w", err)
		}
	}

	logger.Info("Starting sync %s (mode %s)", report.RunID, tree.Mode)

	// 4. Announce every selected stream
	abortErr := o.writeSchemas(ctx, tree, sel)

	// 5. Drive root partitions; children run inside their parent's pages
	driver := NewDriver(o.transport, o.sink, NewCursorTracker(o.state, o.cfg.StartDate), schemas, report)
	driver.progress = o
	for _, plan := range plans {
		if abortErr != nil {
			break
		}
		logger.Section(plan.run.stream.Name)
		for _, pctx := range plan.partitions {
			if abortErr = driver.Run(ctx, plan.run, pctx); abortErr != nil {
				break
			}
		}
	}

	// 6. Finish the run
	report.FinishedAt = time.Now()
	err = errors.Join(abortErr, report.Err())
	o.finishRun(ctx, report, err)

	logger.Info("Sync complete: %d records, %d failed streams", report.Records(), len(report.FailedStreams()))
	return report, err
}

// Status returns the progress of the running sync.
func (o *SyncOrchestrator) Status(_ context.Context) (*driving.SyncStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.status != nil {
		// Return a copy to avoid race conditions
		cp := *o.status
		return &cp, nil
	}

	// Not running - return idle status
	return &driving.SyncStatus{Running: false}, nil
}

func (o *SyncOrchestrator) writeSchemas(ctx context.Context, tree *StreamTree, sel selection) error {
	for _, s := range tree.All {
		if !sel.selected[s.Name] {
			continue
		}
		if err := o.sink.WriteSchema(ctx, catalogEntry(s, true)); err != nil {
			return fmt.Errorf("write schema %s: %w", s.Name, err)
		}
	}
	return nil
}

func (o *SyncOrchestrator) finishRun(ctx context.Context, report *domain.SyncReport, err error) {
	if o.runs == nil {
		return
	}
	run := domain.SyncRun{
		ID:         report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Status:     domain.RunSucceeded,
		Records:    report.Records(),
	}
	if err != nil {
		run.Status = domain.RunFailed
		run.Error = err.Error()
	}
	// The run context may already be cancelled; the outcome is still recorded.
	if ferr := o.runs.FinishRun(context.WithoutCancel(ctx), run); ferr != nil {
		logger.Warn("Failed to record run %s: %v", report.RunID, ferr)
	}
}

func (o *SyncOrchestrator) setStatus(status *driving.SyncStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = status
}

func (o *SyncOrchestrator) clearStatus() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = nil
}

func (o *SyncOrchestrator) streamStarted(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != nil {
		o.status.Stream = name
	}
}

func (o *SyncOrchestrator) recordEmitted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != nil {
		o.status.RecordsEmitted++
	}
}

func (o *SyncOrchestrator) partitionFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != nil {
		o.status.ErrorCount++
	}
}

// buildRun builds the run tree of a needed stream.
func buildRun(tree *StreamTree, sel selection, s *domain.Stream) *streamRun {
	run := &streamRun{stream: s, emit: sel.selected[s.Name]}
	for _, child := range tree.Children(s.Name) {
		if sel.needed[child.Name] {
			run.children = append(run.children, buildRun(tree, sel, child))
		}
	}
	return run
}

func catalogEntry(s *domain.Stream, selected bool) domain.CatalogEntry {
	entry := domain.CatalogEntry{
		Stream:         s.Name,
		PrimaryKeys:    s.PrimaryKeys,
		ReplicationKey: s.ReplicationKey,
		Selected:       selected,
		Schema:         s.Schema.JSON(),
	}
	if s.Parent != nil {
		entry.Parent = s.Parent.Name
	}
	return entry
}
