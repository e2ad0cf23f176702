package journal

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Memory is a process-local Recorder used by the memory store driver and tests.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Recorder = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Append(_ context.Context, bookID, eventType string, data json.RawMessage, metadata map[string]interface{}) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	version := 0
	for _, e := range m.entries {
		if e.BookID == bookID && e.Version > version {
			version = e.Version
		}
	}
	entry := Entry{
		ID:        int64(len(m.entries) + 1),
		BookID:    bookID,
		EventType: eventType,
		Data:      append(json.RawMessage(nil), data...),
		Metadata:  metadata,
		Version:   version + 1,
		CreatedAt: time.Now().UTC(),
	}
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *Memory) History(_ context.Context, bookID string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Entry{}
	for _, e := range m.entries {
		if e.BookID == bookID {
			out = append(out, e)
		}
	}
	return out, nil
}
