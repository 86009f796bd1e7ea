package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// CatalogEntry describes one discovered stream.
type CatalogEntry struct {
	Stream         string         `json:"stream"`
	Parent         string         `json:"parent,omitempty"`
	PrimaryKeys    []string       `json:"key_properties"`
	ReplicationKey string         `json:"replication_key,omitempty"`
	Selected       bool           `json:"selected"`
	Schema         map[string]any `json:"schema"`
}

// PartitionFailure records a partition that ended with an error.
type PartitionFailure struct {
	Stream  string
	Context Context
	Err     error
}

func (f PartitionFailure) Error() string {
	return fmt.Sprintf("stream %s partition %s: %v", f.Stream, f.Context.Describe(), f.Err)
}

func (f PartitionFailure) Unwrap() error {
	return f.Err
}

// StreamReport holds the counters of one stream over a sync.
type StreamReport struct {
	Stream     string
	Selected   bool
	Partitions int
	Skipped    int
	Requests   int
	Records    int
	Failures   []PartitionFailure
}

// SyncReport summarises a sync run.
type SyncReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Streams    map[string]*StreamReport
}

// NewSyncReport creates an empty report.
func NewSyncReport(runID string) *SyncReport {
	return &SyncReport{
		RunID:     runID,
		StartedAt: time.Now(),
		Streams:   make(map[string]*StreamReport),
	}
}

// Stream returns the report of a stream, creating it on first use.
func (r *SyncReport) Stream(name string) *StreamReport {
	sr, ok := r.Streams[name]
	if !ok {
		sr = &StreamReport{Stream: name}
		r.Streams[name] = sr
	}
	return sr
}

// Records returns the number of records emitted across streams.
func (r *SyncReport) Records() int {
	total := 0
	for _, sr := range r.Streams {
		total += sr.Records
	}
	return total
}

// FailedStreams returns the names of streams with at least one failed partition, sorted.
func (r *SyncReport) FailedStreams() []string {
	var names []string
	for name, sr := range r.Streams {
		if len(sr.Failures) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Err joins every partition failure, or returns nil when all partitions succeeded.
func (r *SyncReport) Err() error {
	var errs []error
	for _, name := range r.FailedStreams() {
		for _, f := range r.Streams[name].Failures {
			errs = append(errs, f)
		}
	}
	return errors.Join(errs...)
}
