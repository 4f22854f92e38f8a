package archive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"billsync/internal/backup"
)

// MemoryArchive is an in-memory implementation of the backup.Archive
// interface, useful for testing. Safe for concurrent use.
type MemoryArchive struct {
	mu      sync.Mutex
	clock   backup.Clock
	entries []*memoryEntry
}

type memoryEntry struct {
	entry backup.Entry
	data  []byte
}

var _ backup.Archive = (*MemoryArchive)(nil)

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive(clock backup.Clock) *MemoryArchive {
	if clock == nil {
		clock = backup.RealClock{}
	}
	return &MemoryArchive{clock: clock}
}

func (m *MemoryArchive) Store(_ context.Context, artifact []byte, suggestedName string) (*backup.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &memoryEntry{
		entry: backup.Entry{
			Handle:    fmt.Sprintf("mem-%d-%s", len(m.entries), suggestedName),
			Name:      suggestedName,
			CreatedAt: m.clock.Now(),
			Size:      int64(len(artifact)),
		},
		data: append([]byte{}, artifact...),
	}
	m.entries = append(m.entries, e)

	out := e.entry
	return &out, nil
}

func (m *MemoryArchive) List(context.Context) ([]*backup.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*backup.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		entry := e.entry
		out = append(out, &entry)
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryArchive) Retrieve(_ context.Context, handle string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.entry.Handle == handle {
			return append([]byte{}, e.data...), nil
		}
	}
	return nil, fmt.Errorf("backup not found: %s", handle)
}

func (m *MemoryArchive) RetireOldest(_ context.Context, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) <= keep {
		return nil
	}

	// Entries are appended in store order, so the tail holds the
	// newest artifacts.
	m.entries = m.entries[len(m.entries)-keep:]
	return nil
}

// SetEntryTime rewrites a stored entry's CreatedAt, for tests that need
// distinct timestamps.
func (m *MemoryArchive) SetEntryTime(handle string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.entry.Handle == handle {
			e.entry.CreatedAt = t
		}
	}
}
