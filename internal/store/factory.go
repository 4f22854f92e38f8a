package store

import (
	"fmt"
	"os"
	"path/filepath"

	"billsync/internal/backup"
	"billsync/internal/config"
)

// NewStoreFromConfig creates a Store implementation based on the store config type.
func NewStoreFromConfig(cfg config.StoreConfig) (backup.Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("sqlite store requires data_dir to be set")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		s, err := NewSQLiteStore(filepath.Join(cfg.DataDir, "billsync.db"))
		if err != nil {
			return nil, err
		}
		if err := s.MigrateUp(); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrating store schema: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
