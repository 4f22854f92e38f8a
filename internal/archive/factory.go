// Package archive implements the platform persistence strategies for
// backup artifacts: filesystem (device-like), local key/value store
// (browser-like), and memory (tests). One strategy is selected at
// startup and injected; the interface contract is identical for all.
package archive

import (
	"fmt"

	"billsync/internal/backup"
	"billsync/internal/config"
)

// NewArchiveFromConfig creates an Archive based on the archive config
// type. An empty type consults the platform probe: filesystem when the
// platform is native-like, localstore otherwise.
func NewArchiveFromConfig(cfg config.ArchiveConfig, probe Probe, share ShareFunc, logger backup.Logger, clock backup.Clock) (backup.Archive, error) {
	kind := cfg.Type
	if kind == "" {
		if probe != nil && probe.IsNativeLike() {
			kind = "filesystem"
		} else {
			kind = "localstore"
		}
	}

	switch kind {
	case "memory":
		return NewMemoryArchive(clock), nil
	case "filesystem":
		if cfg.PrivateDir == "" {
			return nil, fmt.Errorf("filesystem archive requires private_dir to be set")
		}
		return NewFilesystemArchive(cfg.PrivateDir, cfg.SharedDir, share, logger), nil
	case "localstore":
		if cfg.IndexPath == "" {
			return nil, fmt.Errorf("localstore archive requires index_path to be set")
		}
		return NewLocalStoreArchive(cfg.IndexPath, cfg.ExportDir, logger, clock), nil
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
