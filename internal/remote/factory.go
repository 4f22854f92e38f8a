package remote

import (
	"context"
	"fmt"

	"billsync/internal/config"
	"billsync/internal/sync"
)

// NewRemoteFromConfig creates a Remote implementation based on the remote config type.
func NewRemoteFromConfig(ctx context.Context, cfg config.RemoteConfig) (sync.Remote, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryRemote(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem remote requires fs_root to be set")
		}
		return NewFilesystemRemote(cfg.FSRoot)
	case "s3":
		return NewS3Remote(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}
