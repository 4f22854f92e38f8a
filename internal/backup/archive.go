package backup

import (
	"context"
	"errors"
	"time"
)

// ErrStorageUnavailable means no writable backup location exists,
// neither the private location nor the shared one. This is the only
// case where storing an artifact fails outright; a shared-location
// failure alone degrades to success with a caveat.
var ErrStorageUnavailable = errors.New("no writable backup location available")

// Entry describes one stored artifact.
type Entry struct {
	// Handle locates the artifact for Retrieve. Its form is private to
	// the archive strategy that produced it.
	Handle string

	// Name is the suggested name the artifact was stored under.
	Name string

	CreatedAt time.Time
	Size      int64

	// Caveat is a human-facing note about a degraded store, e.g. the
	// user-visible copy could not be written. Empty on a clean store.
	Caveat string
}

// Archive is the platform persistence strategy for backup artifacts.
// One implementation is selected at startup (filesystem on native-like
// platforms, local key/value store otherwise) and the contract is
// identical for both.
type Archive interface {
	// Store durably writes an artifact. Implementations may additionally
	// produce a user-facing export copy; that copy is point-in-time and
	// is not required to stay in sync with the restorable record.
	Store(ctx context.Context, artifact []byte, suggestedName string) (*Entry, error)

	// List returns the stored artifacts, newest first.
	List(ctx context.Context) ([]*Entry, error)

	// Retrieve returns the artifact bytes for a handle.
	Retrieve(ctx context.Context, handle string) ([]byte, error)

	// RetireOldest enforces the retention cap by deleting the oldest
	// artifacts beyond keep. Best-effort: individual delete failures
	// are logged, not surfaced.
	RetireOldest(ctx context.Context, keep int) error
}
