// Package remote implements the remote document store the cloud
// reconciler reads and writes: one document per principal, stored in
// S3, on a filesystem, or in memory.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	gosync "sync"

	"billsync/internal/sync"
)

// MemoryRemote is an in-memory implementation of the sync.Remote
// interface, useful for testing. Documents are deep-copied through
// JSON so callers cannot alias stored state. Safe for concurrent use.
type MemoryRemote struct {
	mu   gosync.RWMutex
	docs map[string][]byte
}

var _ sync.Remote = (*MemoryRemote)(nil)

// NewMemoryRemote creates an empty in-memory remote.
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{docs: make(map[string][]byte)}
}

func (m *MemoryRemote) Read(_ context.Context, principalID string) (*sync.Document, error) {
	m.mu.RLock()
	raw, ok := m.docs[principalID]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	var doc sync.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding remote document: %w", err)
	}
	return &doc, nil
}

func (m *MemoryRemote) Write(_ context.Context, principalID string, doc *sync.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding remote document: %w", err)
	}

	m.mu.Lock()
	m.docs[principalID] = raw
	m.mu.Unlock()
	return nil
}
