package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"billsync/internal/sync"
)

// FilesystemRemote stores each principal's document as a JSON file
// under a root directory, typically a mounted network share or a local
// folder a file-sync client mirrors. IO failures are classified
// transient: a mount can come back.
type FilesystemRemote struct {
	root string
}

var _ sync.Remote = (*FilesystemRemote)(nil)

// NewFilesystemRemote creates a filesystem remote rooted at root.
func NewFilesystemRemote(root string) (*FilesystemRemote, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating remote root: %w", err)
	}
	return &FilesystemRemote{root: root}, nil
}

func (f *FilesystemRemote) docPath(principalID string) string {
	return filepath.Join(f.root, principalID+".json")
}

func (f *FilesystemRemote) Read(_ context.Context, principalID string) (*sync.Document, error) {
	raw, err := os.ReadFile(f.docPath(principalID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sync.NewTransient("reading remote document", err)
	}

	var doc sync.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding remote document: %w", err)
	}
	return &doc, nil
}

func (f *FilesystemRemote) Write(_ context.Context, principalID string, doc *sync.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding remote document: %w", err)
	}

	path := f.docPath(principalID)
	tmp, err := os.CreateTemp(f.root, ".tmp-*")
	if err != nil {
		return sync.NewTransient("creating remote temp file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return sync.NewTransient("writing remote document", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return sync.NewTransient("closing remote temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return sync.NewTransient("publishing remote document", err)
	}
	return nil
}
