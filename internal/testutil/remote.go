package testutil

import (
	"context"
	gosync "sync"

	"billsync/internal/sync"
)

// FlakyRemote wraps a sync.Remote, counting calls and injecting
// scripted failures. Errors are consumed in order; once a queue is
// drained the call passes through to the inner remote.
type FlakyRemote struct {
	Inner sync.Remote

	mu         gosync.Mutex
	readErrs   []error
	writeErrs  []error
	readCalls  int
	writeCalls int
}

var _ sync.Remote = (*FlakyRemote)(nil)

// NewFlakyRemote wraps inner with call counting and error injection.
func NewFlakyRemote(inner sync.Remote) *FlakyRemote {
	return &FlakyRemote{Inner: inner}
}

// FailReads queues errors returned by the next Read calls, in order.
func (f *FlakyRemote) FailReads(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErrs = append(f.readErrs, errs...)
}

// FailWrites queues errors returned by the next Write calls, in order.
func (f *FlakyRemote) FailWrites(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErrs = append(f.writeErrs, errs...)
}

// ReadCalls returns how many Read calls were made.
func (f *FlakyRemote) ReadCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readCalls
}

// WriteCalls returns how many Write calls were made.
func (f *FlakyRemote) WriteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeCalls
}

func (f *FlakyRemote) Read(ctx context.Context, principalID string) (*sync.Document, error) {
	f.mu.Lock()
	f.readCalls++
	var err error
	if len(f.readErrs) > 0 {
		err = f.readErrs[0]
		f.readErrs = f.readErrs[1:]
	}
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return f.Inner.Read(ctx, principalID)
}

func (f *FlakyRemote) Write(ctx context.Context, principalID string, doc *sync.Document) error {
	f.mu.Lock()
	f.writeCalls++
	var err error
	if len(f.writeErrs) > 0 {
		err = f.writeErrs[0]
		f.writeErrs = f.writeErrs[1:]
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}
	return f.Inner.Write(ctx, principalID, doc)
}
