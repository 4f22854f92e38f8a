package backup

import (
	"context"
	"time"

	"billsync/internal/model"
)

// Store is the authoritative on-device dataset. It is the single
// source of truth; snapshots are derived, disposable artifacts.
// Mutation happens only through the normal CRUD paths and through
// ReplaceAll, the restore/reconciliation gateway.
type Store interface {
	// Collection reads, in stable insertion order.

	Customers(ctx context.Context) ([]model.Customer, error)
	Bills(ctx context.Context) ([]model.Bill, error)
	Payments(ctx context.Context) ([]model.Payment, error)
	Items(ctx context.Context) ([]model.Item, error)
	RateHistory(ctx context.Context) ([]model.ItemRateEntry, error)

	// CRUD writes.

	// PutCustomer inserts or updates a customer by ID.
	PutCustomer(ctx context.Context, c model.Customer) error

	// PutBill inserts or updates a bill by ID. When the ID already
	// exists, the write only lands if the incoming CreatedAt is not
	// older than the stored one: latest edit wins.
	PutBill(ctx context.Context, b model.Bill) error

	// PutPayment inserts or updates a payment by ID.
	PutPayment(ctx context.Context, p model.Payment) error

	// PutItem inserts or updates an item. When an existing item's rate
	// changes, a rate history entry stamped at is appended. The history
	// is append-only; entries are never rewritten.
	PutItem(ctx context.Context, item model.Item, at time.Time) error

	// ReplaceAll replaces all five collections wholesale with the given
	// dataset. All or nothing: on error the prior dataset is untouched.
	ReplaceAll(ctx context.Context, ds *model.Dataset) error

	// Settings are small key/value entries (backup mode, frequency,
	// last-run, last-synced per principal).

	// GetSetting returns the stored value, or "" when absent.
	GetSetting(ctx context.Context, key string) (string, error)

	// PutSetting stores a value under key, overwriting any prior value.
	PutSetting(ctx context.Context, key, value string) error

	// Close releases the underlying store.
	Close() error
}
