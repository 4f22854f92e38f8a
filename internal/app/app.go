package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"billsync/internal/archive"
	"billsync/internal/backup"
	"billsync/internal/config"
	"billsync/internal/encryption"
	"billsync/internal/remote"
	"billsync/internal/store"
	"billsync/internal/sync"
)

// App is the application layer between the CLI and the backup and sync
// services. It constructs all dependencies from config and manages
// their lifecycle on Close.
type App struct {
	cfg        *config.Config
	store      backup.Store
	archive    backup.Archive
	encryptor  backup.Encryptor
	service    *backup.Service
	identity   *sync.StaticIdentity
	reconciler *sync.Reconciler // nil when no remote is configured
	logger     backup.Logger
	logFile    *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "BackupCreate", "SyncOnce").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("op", operation)}

	st, err := store.NewStoreFromConfig(cfg.Store)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}

	probe := &archive.DirProbe{PrivateDir: cfg.Archive.PrivateDir}
	arch, err := archive.NewArchiveFromConfig(cfg.Archive, probe, nil, logger, backup.RealClock{})
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	svc := backup.NewService(st, arch, enc, logger, backup.RealClock{}, cfg.Archive.Keep)
	identity := sync.NewStaticIdentity(cfg.Sync.Principal, "")

	a := &App{
		cfg:       cfg,
		store:     st,
		archive:   arch,
		encryptor: enc,
		service:   svc,
		identity:  identity,
		logger:    logger,
		logFile:   logFile,
	}

	if cfg.Sync.Remote.Type != "" {
		rem, err := remote.NewRemoteFromConfig(ctx, cfg.Sync.Remote)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating remote: %w", err)
		}
		a.reconciler = sync.NewReconciler(st, svc.Builder(), svc.Applier(), rem, identity, logger, backup.RealClock{}, sync.Options{
			DeviceID:    cfg.DeviceID,
			Timeout:     time.Duration(cfg.Sync.TimeoutSeconds) * time.Second,
			MaxAttempts: cfg.Sync.MaxAttempts,
		})
	}

	return a, nil
}

// Service returns the backup service.
func (a *App) Service() *backup.Service { return a.service }

// Encryptor returns the configured artifact encryptor, or nil when
// encryption is disabled.
func (a *App) Encryptor() backup.Encryptor { return a.encryptor }

// SyncOnce runs a single reconciliation cycle.
func (a *App) SyncOnce(ctx context.Context) error {
	if a.reconciler == nil {
		return fmt.Errorf("no sync remote configured")
	}
	return a.reconciler.Sync(ctx)
}

// RunSyncScheduler starts periodic reconciliation tied to the signed-in
// principal and blocks until ctx is cancelled.
func (a *App) RunSyncScheduler(ctx context.Context) error {
	if a.reconciler == nil {
		return fmt.Errorf("no sync remote configured")
	}

	interval := time.Duration(a.cfg.Sync.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	sup := a.reconciler.Supervise(a.identity, interval)
	defer sup.Close()

	<-ctx.Done()
	return nil
}

// Close releases the store and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
