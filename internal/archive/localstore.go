package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"billsync/internal/backup"
)

// keyPrefix namespaces billsync entries in the key/value index.
const keyPrefix = "billsync.backup."

// LocalStoreArchive is the browser-like persistence strategy: artifacts
// live as namespaced entries in a single key/value index (the restorable
// record), and each store also drops a point-in-time export copy into a
// downloads directory. The two are not kept in sync; the export is the
// user's file, the index entry is what List/Retrieve operate on.
type LocalStoreArchive struct {
	indexPath string
	exportDir string // optional
	logger    backup.Logger
	clock     backup.Clock
	mu        sync.Mutex
}

var _ backup.Archive = (*LocalStoreArchive)(nil)

// NewLocalStoreArchive creates a local key/value archive with its index
// at indexPath. exportDir may be empty to skip export copies.
func NewLocalStoreArchive(indexPath, exportDir string, logger backup.Logger, clock backup.Clock) *LocalStoreArchive {
	return &LocalStoreArchive{
		indexPath: indexPath,
		exportDir: exportDir,
		logger:    logger,
		clock:     clock,
	}
}

// localEntry is one stored artifact in the index. Data is base64 in the
// index file via encoding/json.
type localEntry struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Data      []byte    `json:"data"`
}

type localIndex struct {
	Entries []localEntry `json:"entries"`
}

// Store upserts the artifact under its namespaced key and writes an
// export copy. The export is best-effort: its failure is logged, the
// store still succeeds as long as the index write lands.
func (a *LocalStoreArchive) Store(ctx context.Context, artifact []byte, suggestedName string) (*backup.Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, err := a.load()
	if err != nil {
		return nil, err
	}

	key := keyPrefix + suggestedName
	entry := localEntry{
		Key:       key,
		Name:      suggestedName,
		CreatedAt: a.clock.Now(),
		Data:      artifact,
	}

	replaced := false
	for i, e := range idx.Entries {
		if e.Key == key {
			idx.Entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Entries = append(idx.Entries, entry)
	}

	if err := a.save(idx); err != nil {
		return nil, fmt.Errorf("%w: %v", backup.ErrStorageUnavailable, err)
	}

	caveat := ""
	if a.exportDir != "" {
		exportPath := filepath.Join(a.exportDir, suggestedName)
		if err := writeFileAtomic(a.exportDir, exportPath, artifact); err != nil {
			a.logger.Warn("export copy failed", "path", exportPath, "error", err)
			caveat = "Backup saved, but the download copy could not be written."
		}
	}

	return &backup.Entry{
		Handle:    key,
		Name:      suggestedName,
		CreatedAt: entry.CreatedAt,
		Size:      int64(len(artifact)),
		Caveat:    caveat,
	}, nil
}

// List enumerates the index, newest first.
func (a *LocalStoreArchive) List(ctx context.Context) ([]*backup.Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, err := a.load()
	if err != nil {
		return nil, err
	}

	entries := make([]*backup.Entry, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		entries = append(entries, &backup.Entry{
			Handle:    e.Key,
			Name:      e.Name,
			CreatedAt: e.CreatedAt,
			Size:      int64(len(e.Data)),
		})
	}

	sortNewestFirst(entries)
	return entries, nil
}

// Retrieve returns the artifact stored under handle.
func (a *LocalStoreArchive) Retrieve(ctx context.Context, handle string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, err := a.load()
	if err != nil {
		return nil, err
	}

	for _, e := range idx.Entries {
		if e.Key == handle {
			return e.Data, nil
		}
	}
	return nil, fmt.Errorf("backup not found: %s", handle)
}

// RetireOldest drops index entries beyond keep, oldest first. Export
// copies are the user's files and are left alone.
func (a *LocalStoreArchive) RetireOldest(ctx context.Context, keep int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx, err := a.load()
	if err != nil {
		return err
	}
	if len(idx.Entries) <= keep {
		return nil
	}

	// Sort a view newest-first, keep the head, rebuild the index.
	view := make([]*backup.Entry, 0, len(idx.Entries))
	byKey := make(map[string]localEntry, len(idx.Entries))
	for _, e := range idx.Entries {
		byKey[e.Key] = e
		view = append(view, &backup.Entry{Handle: e.Key, Name: e.Name, CreatedAt: e.CreatedAt})
	}
	sortNewestFirst(view)

	kept := make([]localEntry, 0, keep)
	for _, v := range view[:keep] {
		kept = append(kept, byKey[v.Handle])
	}
	for _, v := range view[keep:] {
		a.logger.Debug("retired old backup", "name", v.Name)
	}
	idx.Entries = kept

	return a.save(idx)
}

// load reads the index file; a missing file is an empty index.
func (a *LocalStoreArchive) load() (*localIndex, error) {
	data, err := os.ReadFile(a.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &localIndex{}, nil
		}
		return nil, fmt.Errorf("reading backup index: %w", err)
	}

	var idx localIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decoding backup index: %w", err)
	}
	return &idx, nil
}

// save writes the index atomically.
func (a *LocalStoreArchive) save(idx *localIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encoding backup index: %w", err)
	}
	return writeFileAtomic(filepath.Dir(a.indexPath), a.indexPath, data)
}
