package sync

import gosync "sync"

// Principal is an opaque signed-in account. Provider protocol details
// (tokens, OAuth flows) are out of scope; the reconciler only needs a
// stable ID to key the remote document and the last-synced timestamp.
type Principal struct {
	ID   string
	Name string
}

// Identity exposes the signed-in principal and change notifications.
type Identity interface {
	// CurrentPrincipal returns the signed-in principal, or nil when
	// signed out.
	CurrentPrincipal() *Principal

	// Subscribe registers fn to be called on every sign-in/sign-out
	// transition with the new principal (nil on sign-out). The returned
	// cancel func unregisters it.
	Subscribe(fn func(*Principal)) (cancel func())
}

// StaticIdentity is an Identity fixed at construction, the CLI case
// where the principal comes from config. Sign-in changes require a
// restart, so Subscribe never fires.
type StaticIdentity struct {
	principal *Principal
}

var _ Identity = (*StaticIdentity)(nil)

// NewStaticIdentity creates an identity for the given principal ID.
// An empty ID means signed out.
func NewStaticIdentity(id, name string) *StaticIdentity {
	if id == "" {
		return &StaticIdentity{}
	}
	return &StaticIdentity{principal: &Principal{ID: id, Name: name}}
}

func (s *StaticIdentity) CurrentPrincipal() *Principal { return s.principal }

func (s *StaticIdentity) Subscribe(func(*Principal)) (cancel func()) {
	return func() {}
}

// AccountIdentity is a mutable Identity with explicit SignIn/SignOut,
// for hosts that manage an interactive session (and for tests).
// Safe for concurrent use.
type AccountIdentity struct {
	mu        gosync.Mutex
	principal *Principal
	subs      map[int]func(*Principal)
	nextSub   int
}

var _ Identity = (*AccountIdentity)(nil)

func NewAccountIdentity() *AccountIdentity {
	return &AccountIdentity{subs: make(map[int]func(*Principal))}
}

func (a *AccountIdentity) CurrentPrincipal() *Principal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.principal
}

func (a *AccountIdentity) SignIn(p Principal) {
	a.mu.Lock()
	a.principal = &p
	subs := a.snapshotSubs()
	a.mu.Unlock()

	for _, fn := range subs {
		fn(&p)
	}
}

func (a *AccountIdentity) SignOut() {
	a.mu.Lock()
	a.principal = nil
	subs := a.snapshotSubs()
	a.mu.Unlock()

	for _, fn := range subs {
		fn(nil)
	}
}

func (a *AccountIdentity) Subscribe(fn func(*Principal)) (cancel func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// snapshotSubs copies the subscriber list; callers invoke outside the lock.
func (a *AccountIdentity) snapshotSubs() []func(*Principal) {
	out := make([]func(*Principal), 0, len(a.subs))
	for _, fn := range a.subs {
		out = append(out, fn)
	}
	return out
}
