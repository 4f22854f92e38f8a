package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"billsync/internal/sync"
)

func TestFilesystemRemote_ReadMissing(t *testing.T) {
	t.Parallel()

	r, err := NewFilesystemRemote(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemRemote() error = %v", err)
	}

	doc, err := r.Read(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if doc != nil {
		t.Errorf("Read() on empty remote = %+v, want nil", doc)
	}
}

func TestFilesystemRemote_RoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	r, err := NewFilesystemRemote(root)
	if err != nil {
		t.Fatalf("NewFilesystemRemote() error = %v", err)
	}
	ctx := context.Background()
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	if err := r.Write(ctx, "alice", testDocument(at)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// One JSON file per principal.
	if _, err := os.Stat(filepath.Join(root, "alice.json")); err != nil {
		t.Errorf("document file missing: %v", err)
	}

	got, err := r.Read(ctx, "alice")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got == nil {
		t.Fatal("Read() = nil after Write")
	}
	if !got.LastUpdate.Equal(at) {
		t.Errorf("LastUpdate = %v, want %v", got.LastUpdate, at)
	}
	if len(got.Snapshot.Body.Customers) != 1 {
		t.Errorf("snapshot did not round-trip: %+v", got.Snapshot)
	}
}

func TestFilesystemRemote_OverwriteKeepsLatest(t *testing.T) {
	t.Parallel()

	r, err := NewFilesystemRemote(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemRemote() error = %v", err)
	}
	ctx := context.Background()
	t0 := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	if err := r.Write(ctx, "alice", testDocument(t0)); err != nil {
		t.Fatalf("first Write() error = %v", err)
	}
	if err := r.Write(ctx, "alice", testDocument(t0.Add(time.Hour))); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}

	got, err := r.Read(ctx, "alice")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !got.LastUpdate.Equal(t0.Add(time.Hour)) {
		t.Errorf("LastUpdate = %v, want the second write", got.LastUpdate)
	}
}

func TestFilesystemRemote_IOFailuresAreTransient(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	r, err := NewFilesystemRemote(root)
	if err != nil {
		t.Fatalf("NewFilesystemRemote() error = %v", err)
	}
	ctx := context.Background()

	// A directory where the document file should be makes the read fail
	// with something other than not-exist.
	if err := os.Mkdir(filepath.Join(root, "alice.json"), 0755); err != nil {
		t.Fatalf("creating blocker: %v", err)
	}

	_, err = r.Read(ctx, "alice")
	if err == nil {
		t.Fatal("Read() error = nil, want transient failure")
	}
	if !sync.IsTransient(err) {
		t.Errorf("IsTransient(%v) = false, want true", err)
	}
}
