package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"billsync/internal/backup"
)

// ErrShareCancelled is returned by a ShareFunc when the user dismissed
// the share action. A cancelled share is not a backup failure: the
// artifact write already succeeded, and "handed off to the user" is a
// distinct outcome from "stored".
var ErrShareCancelled = errors.New("share action cancelled")

// ShareFunc hands a stored artifact to a platform share action so the
// user can move it to storage of their choice. May block on the user
// and may be cancelled.
type ShareFunc func(ctx context.Context, path string) error

// FilesystemArchive is the device-like persistence strategy. Artifacts
// are written to an app-private directory (the restorable record) and,
// best-effort, to a user-visible shared directory plus an optional
// share action. The private write is the one that matters: only when
// neither location is writable does Store fail.
type FilesystemArchive struct {
	privateDir string
	sharedDir  string // optional
	share      ShareFunc
	logger     backup.Logger
}

var _ backup.Archive = (*FilesystemArchive)(nil)

// NewFilesystemArchive creates a filesystem archive. sharedDir and
// share may be empty/nil. The private directory is created lazily on
// first store, so a misconfigured path surfaces as a degraded store
// rather than a construction error.
func NewFilesystemArchive(privateDir, sharedDir string, share ShareFunc, logger backup.Logger) *FilesystemArchive {
	return &FilesystemArchive{
		privateDir: privateDir,
		sharedDir:  sharedDir,
		share:      share,
		logger:     logger,
	}
}

// Store writes the artifact to the private directory and best-effort
// to the shared directory and share action. Degrades in order:
// private ok + shared ok -> clean; private ok + shared failed ->
// success with caveat; private failed + shared ok -> success with
// caveat, handle points at the shared copy; both failed ->
// ErrStorageUnavailable.
func (a *FilesystemArchive) Store(ctx context.Context, artifact []byte, suggestedName string) (*backup.Entry, error) {
	privatePath := filepath.Join(a.privateDir, suggestedName)
	privateErr := writeFileAtomic(a.privateDir, privatePath, artifact)

	var sharedErr error
	sharedPath := ""
	if a.sharedDir != "" {
		sharedPath = filepath.Join(a.sharedDir, suggestedName)
		sharedErr = writeFileAtomic(a.sharedDir, sharedPath, artifact)
	}

	var handle string
	caveat := ""
	switch {
	case privateErr == nil:
		handle = privatePath
		if a.sharedDir != "" && sharedErr != nil {
			a.logger.Warn("user-visible backup copy failed", "path", sharedPath, "error", sharedErr)
			caveat = "Backup saved, but the copy to the shared folder failed."
		}
	case sharedErr == nil && sharedPath != "":
		a.logger.Warn("private backup copy failed, shared copy succeeded", "error", privateErr)
		handle = sharedPath
		caveat = "Backup saved to the shared folder only; in-app restore list may not show it."
	default:
		return nil, fmt.Errorf("%w: private: %v", backup.ErrStorageUnavailable, privateErr)
	}

	if a.share != nil {
		sharePath := handle
		if err := a.share(ctx, sharePath); err != nil {
			if errors.Is(err, ErrShareCancelled) {
				a.logger.Debug("share action cancelled", "path", sharePath)
			} else {
				a.logger.Warn("share action failed", "path", sharePath, "error", err)
			}
		}
	}

	info, err := os.Stat(handle)
	if err != nil {
		return nil, fmt.Errorf("statting stored artifact: %w", err)
	}

	return &backup.Entry{
		Handle:    handle,
		Name:      suggestedName,
		CreatedAt: info.ModTime(),
		Size:      info.Size(),
		Caveat:    caveat,
	}, nil
}

// List returns the artifacts in the private directory, newest first.
// Shared-directory copies are point-in-time exports, not restorable
// records, and are not listed.
func (a *FilesystemArchive) List(ctx context.Context) ([]*backup.Entry, error) {
	dirEntries, err := os.ReadDir(a.privateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*backup.Entry{}, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	entries := []*backup.Entry{}
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			a.logger.Warn("skipping unreadable backup entry", "name", de.Name(), "error", err)
			continue
		}
		entries = append(entries, &backup.Entry{
			Handle:    filepath.Join(a.privateDir, de.Name()),
			Name:      de.Name(),
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sortNewestFirst(entries)
	return entries, nil
}

// Retrieve reads the artifact at handle.
func (a *FilesystemArchive) Retrieve(ctx context.Context, handle string) ([]byte, error) {
	data, err := os.ReadFile(handle)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("backup not found: %s", handle)
		}
		return nil, fmt.Errorf("reading backup: %w", err)
	}
	return data, nil
}

// RetireOldest deletes the oldest private-directory artifacts beyond
// keep. Best-effort: delete failures are logged, not surfaced.
func (a *FilesystemArchive) RetireOldest(ctx context.Context, keep int) error {
	entries, err := a.List(ctx)
	if err != nil {
		return err
	}

	for _, e := range entries[min(keep, len(entries)):] {
		if err := os.Remove(e.Handle); err != nil {
			a.logger.Warn("failed to retire old backup", "path", e.Handle, "error", err)
			continue
		}
		a.logger.Debug("retired old backup", "name", e.Name)
	}
	return nil
}

// sortNewestFirst orders entries by CreatedAt descending, breaking
// ties by name descending (names embed sortable timestamps).
func sortNewestFirst(entries []*backup.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].Name > entries[j].Name
	})
}

// writeFileAtomic writes data to destPath using a temp file + rename,
// creating dir first.
func writeFileAtomic(dir, destPath string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, bytes.NewReader(data)); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
