package sync

import (
	"context"
	gosync "sync"
	"time"
)

// Scheduler is an owned, explicitly cancellable handle for periodic
// reconciliation. The caller that starts it holds it and must Stop it;
// a dangling periodic sync for a signed-out principal is both a
// correctness bug and a resource leak.
type Scheduler struct {
	stop chan struct{}
	done chan struct{}
	once gosync.Once
}

// StartScheduler triggers a reconciliation cycle immediately and then
// on every interval tick until Stop. A tick that lands while a cycle
// is still in flight is absorbed by the reconciler's no-overlap rule.
func (r *Reconciler) StartScheduler(interval time.Duration) *Scheduler {
	s := &Scheduler{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		r.runScheduled()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				r.runScheduled()
			}
		}
	}()

	return s
}

// Stop cancels the periodic trigger and waits for any in-progress tick
// dispatch to finish. Idempotent.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

func (r *Reconciler) runScheduled() {
	if err := r.Sync(context.Background()); err != nil {
		r.logger.Warn("scheduled sync failed", "error", err)
	}
}

// Supervisor ties scheduler lifecycle to identity transitions: start
// on sign-in, mandatory stop on sign-out.
type Supervisor struct {
	reconciler *Reconciler
	interval   time.Duration

	mu          gosync.Mutex
	scheduler   *Scheduler
	unsubscribe func()
}

// Supervise subscribes to identity changes and manages the scheduler
// accordingly. If a principal is already signed in, scheduling starts
// immediately. Call Close to tear everything down.
func (r *Reconciler) Supervise(identity Identity, interval time.Duration) *Supervisor {
	s := &Supervisor{reconciler: r, interval: interval}
	s.unsubscribe = identity.Subscribe(s.onPrincipalChange)
	s.onPrincipalChange(identity.CurrentPrincipal())
	return s
}

func (s *Supervisor) onPrincipalChange(p *Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler != nil {
		s.scheduler.Stop()
		s.scheduler = nil
	}
	if p != nil {
		s.scheduler = s.reconciler.StartScheduler(s.interval)
	}
}

// Close unsubscribes from identity changes and stops any running
// scheduler.
func (s *Supervisor) Close() {
	s.unsubscribe()
	s.onPrincipalChange(nil)
}
