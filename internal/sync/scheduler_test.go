package sync_test

import (
	"testing"
	"time"

	"billsync/internal/backup"
	"billsync/internal/remote"
	"billsync/internal/sync"
	"billsync/internal/testutil"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestScheduler_RunsImmediately(t *testing.T) {
	t.Parallel()

	f := newReconcilerFixture(t)
	s := f.reconciler.StartScheduler(time.Hour)
	defer s.Stop()

	waitFor(t, func() bool { return f.remote.WriteCalls() >= 1 },
		"scheduler did not run an initial sync cycle")
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newReconcilerFixture(t)
	s := f.reconciler.StartScheduler(time.Hour)

	s.Stop()
	s.Stop() // second Stop must not panic or hang
}

func TestScheduler_TicksRepeatedly(t *testing.T) {
	t.Parallel()

	f := newReconcilerFixture(t)
	s := f.reconciler.StartScheduler(10 * time.Millisecond)
	defer s.Stop()

	waitFor(t, func() bool { return f.remote.WriteCalls() >= 3 },
		"scheduler did not keep ticking")
}

func TestSupervisor_FollowsIdentity(t *testing.T) {
	t.Parallel()

	st := testutil.NewSeededStore(t)
	rem := testutil.NewFlakyRemote(remote.NewMemoryRemote())
	clock := testutil.FixedClock()
	logger := backup.NewNopLogger()
	identity := sync.NewAccountIdentity()

	r := sync.NewReconciler(st,
		backup.NewBuilder(st, logger, clock),
		backup.NewApplier(st, logger),
		rem, identity, logger, clock,
		sync.Options{DeviceID: "device-1", RetryDelay: time.Millisecond})

	sup := r.Supervise(identity, time.Hour)
	defer sup.Close()

	// Signed out: nothing runs.
	time.Sleep(30 * time.Millisecond)
	if got := rem.WriteCalls(); got != 0 {
		t.Fatalf("WriteCalls = %d before sign-in, want 0", got)
	}

	// Sign-in starts the scheduler, which syncs immediately.
	identity.SignIn(sync.Principal{ID: "alice", Name: "Alice"})
	waitFor(t, func() bool { return rem.WriteCalls() >= 1 },
		"no sync cycle after sign-in")

	// Sign-out stops the scheduler; call counts settle.
	identity.SignOut()
	settled := rem.WriteCalls()
	time.Sleep(50 * time.Millisecond)
	if got := rem.WriteCalls(); got != settled {
		t.Errorf("WriteCalls moved from %d to %d after sign-out", settled, got)
	}
}

func TestSupervisor_CloseStopsScheduling(t *testing.T) {
	t.Parallel()

	f := newReconcilerFixture(t)
	sup := f.reconciler.Supervise(f.identity, 10*time.Millisecond)

	waitFor(t, func() bool { return f.remote.WriteCalls() >= 1 },
		"no sync cycle after Supervise with signed-in principal")

	sup.Close()
	settled := f.remote.WriteCalls()
	time.Sleep(50 * time.Millisecond)
	if got := f.remote.WriteCalls(); got != settled {
		t.Errorf("WriteCalls moved from %d to %d after Close", settled, got)
	}
}
