package singer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/ports/driven"
)

// Message types.
const (
	TypeSchema = "SCHEMA"
	TypeRecord = "RECORD"
	TypeState  = "STATE"
)

// Ensure Sink implements the interface.
var _ driven.RecordSink = (*Sink)(nil)

type schemaMessage struct {
	Type               string         `json:"type"`
	Stream             string         `json:"stream"`
	Schema             map[string]any `json:"schema"`
	KeyProperties      []string       `json:"key_properties"`
	BookmarkProperties []string       `json:"bookmark_properties,omitempty"`
}

type recordMessage struct {
	Type          string        `json:"type"`
	Stream        string        `json:"stream"`
	Record        domain.Record `json:"record"`
	TimeExtracted string        `json:"time_extracted"`
}

type stateMessage struct {
	Type  string     `json:"type"`
	Value stateValue `json:"value"`
}

type stateValue struct {
	Bookmarks map[string]streamState `json:"bookmarks"`
}

// streamState holds the bookmark of an unpartitioned stream directly and
// the bookmarks of a partitioned stream under partitions.
type streamState struct {
	ReplicationKey      string           `json:"replication_key,omitempty"`
	ReplicationKeyValue string           `json:"replication_key_value,omitempty"`
	Partitions          []partitionState `json:"partitions,omitempty"`
}

type partitionState struct {
	Context             map[string]string `json:"context"`
	ReplicationKey      string            `json:"replication_key"`
	ReplicationKeyValue string            `json:"replication_key_value"`
}

// Sink encodes messages to a writer, one per line.
type Sink struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time

	// bookmarks accumulates every bookmark by stream then partition.
	bookmarks map[string]map[string]domain.Bookmark
}

// NewSink creates a sink writing to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{
		enc:       json.NewEncoder(w),
		now:       time.Now,
		bookmarks: make(map[string]map[string]domain.Bookmark),
	}
}

// WriteSchema writes a SCHEMA message.
func (s *Sink) WriteSchema(_ context.Context, entry domain.CatalogEntry) error {
	msg := schemaMessage{
		Type:          TypeSchema,
		Stream:        entry.Stream,
		Schema:        entry.Schema,
		KeyProperties: entry.PrimaryKeys,
	}
	if msg.KeyProperties == nil {
		msg.KeyProperties = []string{}
	}
	if entry.ReplicationKey != "" {
		msg.BookmarkProperties = []string{entry.ReplicationKey}
	}
	return s.write(msg)
}

// WriteRecord writes a RECORD message.
func (s *Sink) WriteRecord(_ context.Context, stream string, record domain.Record) error {
	return s.write(recordMessage{
		Type:          TypeRecord,
		Stream:        stream,
		Record:        record,
		TimeExtracted: s.now().UTC().Format(time.RFC3339),
	})
}

// WriteState folds the bookmark into the accumulated state and writes it.
func (s *Sink) WriteState(_ context.Context, bookmark domain.Bookmark) error {
	s.mu.Lock()
	partitions, ok := s.bookmarks[bookmark.Stream]
	if !ok {
		partitions = make(map[string]domain.Bookmark)
		s.bookmarks[bookmark.Stream] = partitions
	}
	partitions[bookmark.Partition] = bookmark
	msg := stateMessage{Type: TypeState, Value: s.snapshot()}
	s.mu.Unlock()

	return s.write(msg)
}

// snapshot renders the accumulated bookmarks. Callers hold s.mu.
func (s *Sink) snapshot() stateValue {
	value := stateValue{Bookmarks: make(map[string]streamState, len(s.bookmarks))}
	for stream, partitions := range s.bookmarks {
		if b, ok := partitions[""]; ok && len(partitions) == 1 {
			value.Bookmarks[stream] = streamState{ReplicationKey: b.ReplicationKey, ReplicationKeyValue: b.Value}
			continue
		}

		keys := make([]string, 0, len(partitions))
		for k := range partitions {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var st streamState
		for _, k := range keys {
			b := partitions[k]
			ctx := make(map[string]string, len(b.Context))
			for _, p := range b.Context {
				ctx[p.Name] = p.Value
			}
			st.Partitions = append(st.Partitions, partitionState{
				Context:             ctx,
				ReplicationKey:      b.ReplicationKey,
				ReplicationKeyValue: b.Value,
			})
		}
		value.Bookmarks[stream] = st
	}
	return value
}

func (s *Sink) write(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(msg); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}
