// Package sync reconciles the local billing dataset against one remote
// document per signed-in principal. The policy is whole-snapshot
// last-write-wins keyed by update timestamps: pull absorbs a strictly
// newer remote before push overwrites it with fresh local state.
// Concurrent edits on two offline devices therefore lose one side
// entirely; that limitation is inherited from the product design, not
// an accident of this implementation.
package sync

import (
	"context"
	"fmt"
	gosync "sync/atomic"
	"time"

	"billsync/internal/backup"
	"billsync/internal/snapshot"
)

// Document is the remote per-principal document: the peer copy of the
// dataset plus the timestamp last-write-wins is keyed on.
type Document struct {
	LastUpdate time.Time          `json:"lastUpdate"`
	DeviceID   string             `json:"deviceId,omitempty"`
	Snapshot   *snapshot.Snapshot `json:"snapshot"`
}

// Remote is the remote document store. Implementations classify their
// failures via this package's Error type so the reconciler can tell
// retryable from fatal.
type Remote interface {
	// Read returns the principal's document, or nil when none exists.
	Read(ctx context.Context, principalID string) (*Document, error)

	// Write stores the principal's document, overwriting any prior one.
	Write(ctx context.Context, principalID string, doc *Document) error
}

// lastSyncedKeyPrefix keys the per-principal last-synced timestamp in
// the settings store.
const lastSyncedKeyPrefix = "sync.last_synced."

// Defaults for the retry and timeout policy.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultTimeout     = 30 * time.Second
)

// Reconciler runs pull-then-push reconciliation cycles for one
// principal at a time. It never mutates local data directly: remote
// state enters only through the restore applier, preserving the single
// mutation gateway and its overwrite-not-merge contract.
type Reconciler struct {
	store    backup.Store
	builder  *backup.Builder
	applier  *backup.Applier
	remote   Remote
	identity Identity
	logger   backup.Logger
	clock    backup.Clock
	deviceID string

	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration

	syncing gosync.Bool
}

// Options tune the reconciler; zero values select defaults.
type Options struct {
	DeviceID    string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// NewReconciler creates a Reconciler.
func NewReconciler(store backup.Store, builder *backup.Builder, applier *backup.Applier, remote Remote, identity Identity, logger backup.Logger, clock backup.Clock, opts Options) *Reconciler {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}

	return &Reconciler{
		store:       store,
		builder:     builder,
		applier:     applier,
		remote:      remote,
		identity:    identity,
		logger:      logger,
		clock:       clock,
		deviceID:    opts.DeviceID,
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
	}
}

// Sync runs one reconciliation cycle: pull, then push. A device that
// has been offline must absorb remote changes before overwriting them.
//
// Only one cycle runs at a time; a trigger while a cycle is in flight
// is a no-op, not an error. With no signed-in principal, Sync fails
// with KindAuthRequired.
func (r *Reconciler) Sync(ctx context.Context) error {
	principal := r.identity.CurrentPrincipal()
	if principal == nil {
		return &Error{Kind: KindAuthRequired, Msg: "sign in to sync"}
	}

	if !r.syncing.CompareAndSwap(false, true) {
		r.logger.Debug("sync already in flight, ignoring trigger", "principal", principal.ID)
		return nil
	}
	defer r.syncing.Store(false)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.Info("sync started", "principal", principal.ID)

	if err := r.pull(ctx, principal.ID); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	if err := r.push(ctx, principal.ID); err != nil {
		return fmt.Errorf("push: %w", err)
	}

	r.logger.Info("sync complete", "principal", principal.ID)
	return nil
}

// pull reads the remote document and applies it when it is strictly
// newer than the last-synced timestamp. Ties are "no pull needed".
func (r *Reconciler) pull(ctx context.Context, principalID string) error {
	var doc *Document
	err := r.withRetry(ctx, "read remote", func() error {
		var err error
		doc, err = r.remote.Read(ctx, principalID)
		return err
	})
	if err != nil {
		return err
	}

	if doc == nil {
		r.logger.Debug("no remote document yet", "principal", principalID)
		return nil
	}

	last, err := r.lastSynced(ctx, principalID)
	if err != nil {
		return err
	}

	if !doc.LastUpdate.After(last) {
		r.logger.Debug("remote not newer, skipping pull",
			"remote", doc.LastUpdate, "lastSynced", last)
		return nil
	}

	if doc.Snapshot == nil {
		return fmt.Errorf("remote document has no snapshot")
	}

	if err := r.applier.Apply(ctx, doc.Snapshot); err != nil {
		return fmt.Errorf("applying remote snapshot: %w", err)
	}

	if err := r.recordLastSynced(ctx, principalID, doc.LastUpdate); err != nil {
		return err
	}

	r.logger.Info("pulled remote snapshot",
		"principal", principalID, "remoteUpdate", doc.LastUpdate)
	return nil
}

// push builds a fresh snapshot, stamps it with the current time, and
// writes it to the remote document, then records the new last-synced
// timestamp.
func (r *Reconciler) push(ctx context.Context, principalID string) error {
	snap, err := r.builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("building snapshot: %w", err)
	}

	now := r.clock.Now().UTC()
	doc := &Document{LastUpdate: now, DeviceID: r.deviceID, Snapshot: snap}

	err = r.withRetry(ctx, "write remote", func() error {
		return r.remote.Write(ctx, principalID, doc)
	})
	if err != nil {
		return err
	}

	if err := r.recordLastSynced(ctx, principalID, now); err != nil {
		return err
	}

	r.logger.Info("pushed local snapshot", "principal", principalID, "lastUpdate", now)
	return nil
}

// withRetry runs op up to maxAttempts times. Only transient failures
// are retried, with a growing delay between attempts; anything else
// aborts immediately.
func (r *Reconciler) withRetry(ctx context.Context, what string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == r.maxAttempts {
			break
		}

		delay := time.Duration(attempt) * r.retryDelay
		r.logger.Warn("transient failure, retrying",
			"op", what, "attempt", attempt, "delay", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", what, r.maxAttempts, lastErr)
}

func (r *Reconciler) lastSynced(ctx context.Context, principalID string) (time.Time, error) {
	raw, err := r.store.GetSetting(ctx, lastSyncedKeyPrefix+principalID)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading last-synced timestamp: %w", err)
	}
	if raw == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing last-synced timestamp: %w", err)
	}
	return t, nil
}

func (r *Reconciler) recordLastSynced(ctx context.Context, principalID string, t time.Time) error {
	key := lastSyncedKeyPrefix + principalID
	if err := r.store.PutSetting(ctx, key, t.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("recording last-synced timestamp: %w", err)
	}
	return nil
}
