package domain

import (
	"math/big"
	"time"
)

// Bookmark is the persisted replication state of one partition.
type Bookmark struct {
	// Stream is the stream name.
	Stream string

	// Partition is the encoded partition key (see PartitionKey.String).
	Partition string

	// Context holds the partitioning values for display.
	Context []PartitionPart

	// ReplicationKey is the field the value was taken from.
	ReplicationKey string

	// Value is the maximum replication value observed, rendered with FormatValue.
	Value string

	// UpdatedAt is when the bookmark was last written.
	UpdatedAt time.Time
}

// CompareReplicationValues orders two replication values. RFC 3339 timestamps
// are compared as instants, numbers numerically and anything else lexically.
// It returns -1, 0 or +1.
func CompareReplicationValues(a, b string) int {
	if ta, errA := time.Parse(time.RFC3339Nano, a); errA == nil {
		if tb, errB := time.Parse(time.RFC3339Nano, b); errB == nil {
			return ta.Compare(tb)
		}
	}
	if na, okA := new(big.Float).SetString(a); okA {
		if nb, okB := new(big.Float).SetString(b); okB {
			return na.Cmp(nb)
		}
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// SyncRun is the log entry of one sync.
type SyncRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Records    int
	Error      string
}

// Sync run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)
