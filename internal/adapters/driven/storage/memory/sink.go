package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.RecordSink = (*Sink)(nil)

// Message is one message received by a Sink.
type Message struct {
	// Type is SCHEMA, RECORD or STATE.
	Type     string
	Stream   string
	Schema   *domain.CatalogEntry
	Record   domain.Record
	Bookmark *domain.Bookmark
}

// Sink records every message in memory. Used for dry runs and tests.
type Sink struct {
	mu       sync.Mutex
	messages []Message

	// Err, when set, is returned by every write.
	Err error
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// WriteSchema records a schema message.
func (s *Sink) WriteSchema(_ context.Context, entry domain.CatalogEntry) error {
	return s.append(Message{Type: "SCHEMA", Stream: entry.Stream, Schema: &entry})
}

// WriteRecord records a record message.
func (s *Sink) WriteRecord(_ context.Context, stream string, record domain.Record) error {
	return s.append(Message{Type: "RECORD", Stream: stream, Record: record})
}

// WriteState records a state message.
func (s *Sink) WriteState(_ context.Context, bookmark domain.Bookmark) error {
	return s.append(Message{Type: "STATE", Stream: bookmark.Stream, Bookmark: &bookmark})
}

func (s *Sink) append(m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.messages = append(s.messages, m)
	return nil
}

// Messages returns a copy of every recorded message in order.
func (s *Sink) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Records returns the records emitted for a stream in order.
func (s *Sink) Records(stream string) []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Record
	for _, m := range s.messages {
		if m.Type == "RECORD" && m.Stream == stream {
			out = append(out, m.Record)
		}
	}
	return out
}

// States returns the bookmarks emitted for a stream in order.
func (s *Sink) States(stream string) []domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Bookmark
	for _, m := range s.messages {
		if m.Type == "STATE" && m.Stream == stream {
			out = append(out, *m.Bookmark)
		}
	}
	return out
}
