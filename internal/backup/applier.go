package backup

import (
	"context"
	"fmt"

	"billsync/internal/model"
	"billsync/internal/snapshot"
)

// Applier commits a validator-approved snapshot to the authoritative
// store. Restore is a full overwrite, not a merge: the snapshot is
// asserted to be a complete, consistent state, and a partial overwrite
// would reintroduce the referential problems validation checks for.
type Applier struct {
	store     Store
	logger    Logger
	observers []func()
}

// NewApplier creates an Applier writing to store.
func NewApplier(store Store, logger Logger) *Applier {
	return &Applier{store: store, logger: logger}
}

// Subscribe registers fn to run after every successful apply, so
// dependent views can refresh. Not safe to call concurrently with Apply.
func (a *Applier) Subscribe(fn func()) {
	a.observers = append(a.observers, fn)
}

// Apply replaces all five collections with the snapshot body. The
// replacement is all-or-none: on error the prior dataset is untouched.
// Applying the same snapshot twice is a no-op the second time.
func (a *Applier) Apply(ctx context.Context, s *snapshot.Snapshot) error {
	if s == nil {
		return fmt.Errorf("nil snapshot")
	}

	ds := &model.Dataset{
		Customers:   s.Body.Customers,
		Bills:       s.Body.Bills,
		Payments:    s.Body.Payments,
		Items:       s.Body.Items,
		RateHistory: s.Body.ItemRateHistory,
	}

	if err := a.store.ReplaceAll(ctx, ds); err != nil {
		return fmt.Errorf("replacing dataset: %w", err)
	}

	a.logger.Info("snapshot applied",
		"customers", len(ds.Customers),
		"bills", len(ds.Bills),
		"payments", len(ds.Payments),
		"items", len(ds.Items))

	for _, fn := range a.observers {
		fn()
	}

	return nil
}
