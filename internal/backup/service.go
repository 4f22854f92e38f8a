// Package backup is the orchestration core: it builds snapshots from
// the authoritative store, archives and retrieves artifacts through
// the platform persistence strategy, and applies validated snapshots
// back to the store.
//
// Operations are not internally serialized against each other.
// Concurrent backup-while-restoring on the same store is undefined;
// callers must not overlap them.
package backup

import (
	"bytes"
	"context"
	"fmt"

	"billsync/internal/snapshot"
)

// DefaultKeep is the retention cap applied after each backup.
const DefaultKeep = 5

// encryptedPrefixes identify artifacts that need a DecryptionContext
// before they can be parsed: the age format header and the test cipher
// header used by the deterministic test encryptor.
var encryptedPrefixes = [][]byte{
	[]byte("age-encryption.org/"),
	[]byte("BSENC\x00\x00\x00"),
}

// EncryptedArtifact reports whether artifact bytes need decryption
// before validation. Callers use it to decide whether to collect a
// passphrase.
func EncryptedArtifact(artifact []byte) bool {
	for _, p := range encryptedPrefixes {
		if bytes.HasPrefix(artifact, p) {
			return true
		}
	}
	return false
}

// Service coordinates backup creation and restore across the store,
// the archive, and the optional artifact encryptor.
type Service struct {
	store     Store
	archive   Archive
	applier   *Applier
	builder   *Builder
	encryptor Encryptor // nil when artifact encryption is disabled
	logger    Logger
	clock     Clock
	keep      int
}

// NewService creates a Service. encryptor may be nil, in which case
// artifacts are stored as plain JSON. keep <= 0 selects DefaultKeep.
func NewService(store Store, archive Archive, encryptor Encryptor, logger Logger, clock Clock, keep int) *Service {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Service{
		store:     store,
		archive:   archive,
		applier:   NewApplier(store, logger),
		builder:   NewBuilder(store, logger, clock),
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		keep:      keep,
	}
}

// Builder exposes the snapshot builder, for callers (the reconciler)
// that need snapshots without archiving them.
func (s *Service) Builder() *Builder { return s.builder }

// Applier exposes the restore applier, the single mutation gateway
// for snapshot data.
func (s *Service) Applier() *Applier { return s.applier }

// CreateBackup builds a snapshot of the current dataset, stores the
// artifact through the archive, and enforces the retention cap.
// Backing up an empty dataset is a valid outcome, not an error.
func (s *Service) CreateBackup(ctx context.Context) (*Entry, error) {
	snap, err := s.builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("building snapshot: %w", err)
	}

	artifact, err := snapshot.Encode(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	if s.encryptor != nil && s.encryptor.IsConfigured() {
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(artifact), &buf); err != nil {
			return nil, fmt.Errorf("encrypting artifact: %w", err)
		}
		artifact = buf.Bytes()
	}

	name := fmt.Sprintf("billsync-backup-%s.json", snap.CreatedAt.Format("20060102-150405"))
	entry, err := s.archive.Store(ctx, artifact, name)
	if err != nil {
		return nil, fmt.Errorf("storing artifact: %w", err)
	}

	if err := s.archive.RetireOldest(ctx, s.keep); err != nil {
		// Retention is best-effort: a failed prune never fails a backup.
		s.logger.Warn("retiring old backups failed", "error", err)
	}

	s.logger.Info("backup created",
		"name", entry.Name,
		"checksum", snap.Metadata.Checksum,
		"bills", snap.Metadata.Counts.Bills)
	return entry, nil
}

// ListBackups returns the archived artifacts, newest first.
func (s *Service) ListBackups(ctx context.Context) ([]*Entry, error) {
	entries, err := s.archive.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	return entries, nil
}

// Prune enforces the retention cap immediately.
func (s *Service) Prune(ctx context.Context) error {
	return s.archive.RetireOldest(ctx, s.keep)
}

// RetrieveArtifact returns the raw archived artifact bytes by handle.
func (s *Service) RetrieveArtifact(ctx context.Context, handle string) ([]byte, error) {
	return s.archive.Retrieve(ctx, handle)
}

// ValidateArtifact decrypts (when needed) and validates artifact bytes
// without touching the dataset. decryptCtx is required only for
// encrypted artifacts; pass nil otherwise.
func (s *Service) ValidateArtifact(artifact []byte, decryptCtx DecryptionContext) (*snapshot.Result, error) {
	plain, err := s.decryptIfNeeded(artifact, decryptCtx)
	if err != nil {
		return nil, err
	}
	return snapshot.Validate(plain), nil
}

// Restore validates artifact bytes and, when validation passes, applies
// the snapshot. The returned result carries any advisory warnings;
// callers wanting to confirm warnings with the user first should use
// ValidateArtifact and then Apply.
func (s *Service) Restore(ctx context.Context, artifact []byte, decryptCtx DecryptionContext) (*snapshot.Result, error) {
	result, err := s.ValidateArtifact(artifact, decryptCtx)
	if err != nil {
		return nil, err
	}
	if !result.OK {
		return result, nil
	}

	if err := s.applier.Apply(ctx, result.Snapshot); err != nil {
		return nil, fmt.Errorf("applying snapshot: %w", err)
	}
	return result, nil
}

// RestoreFromArchive retrieves an archived artifact by handle and
// restores it.
func (s *Service) RestoreFromArchive(ctx context.Context, handle string, decryptCtx DecryptionContext) (*snapshot.Result, error) {
	artifact, err := s.archive.Retrieve(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("retrieving artifact: %w", err)
	}
	return s.Restore(ctx, artifact, decryptCtx)
}

// decryptIfNeeded detects the age header and decrypts through the
// session context. Plain artifacts pass through untouched.
func (s *Service) decryptIfNeeded(artifact []byte, decryptCtx DecryptionContext) ([]byte, error) {
	if !EncryptedArtifact(artifact) {
		return artifact, nil
	}
	if decryptCtx == nil {
		return nil, fmt.Errorf("backup is encrypted but no passphrase was provided")
	}

	var buf bytes.Buffer
	if err := decryptCtx.Decrypt(bytes.NewReader(artifact), &buf); err != nil {
		return nil, fmt.Errorf("decrypting artifact: %w", err)
	}
	return buf.Bytes(), nil
}
