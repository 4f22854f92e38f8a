package store_test

import (
	"context"
	"testing"
	"time"

	"billsync/internal/backup"
	"billsync/internal/model"
	"billsync/internal/store"
	"billsync/internal/testutil"
)

// newStoreFunc builds a fresh empty store for one subtest.
type newStoreFunc func(t *testing.T) backup.Store

func newMemory(t *testing.T) backup.Store {
	t.Helper()
	return store.NewMemoryStore()
}

func newSQLite(t *testing.T) backup.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	return s
}

// TestStoreContract runs the behavioral contract against both
// implementations; restore and sync rely on them being interchangeable.
func TestStoreContract(t *testing.T) {
	t.Parallel()

	impls := map[string]newStoreFunc{
		"memory": newMemory,
		"sqlite": newSQLite,
	}

	for name, newStore := range impls {
		name, newStore := name, newStore
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			t.Run("empty reads", func(t *testing.T) { testEmptyReads(t, newStore(t)) })
			t.Run("insertion order", func(t *testing.T) { testInsertionOrder(t, newStore(t)) })
			t.Run("bill latest edit wins", func(t *testing.T) { testBillLatestWins(t, newStore(t)) })
			t.Run("item rate history", func(t *testing.T) { testItemRateHistory(t, newStore(t)) })
			t.Run("replace all", func(t *testing.T) { testReplaceAll(t, newStore(t)) })
			t.Run("settings", func(t *testing.T) { testSettings(t, newStore(t)) })
		})
	}
}

func testEmptyReads(t *testing.T, s backup.Store) {
	ctx := context.Background()

	customers, err := s.Customers(ctx)
	if err != nil {
		t.Fatalf("Customers() error = %v", err)
	}
	if customers == nil || len(customers) != 0 {
		t.Errorf("Customers() = %v, want empty non-nil slice", customers)
	}

	bills, err := s.Bills(ctx)
	if err != nil {
		t.Fatalf("Bills() error = %v", err)
	}
	if len(bills) != 0 {
		t.Errorf("Bills() = %v, want empty", bills)
	}
}

func testInsertionOrder(t *testing.T, s backup.Store) {
	ctx := context.Background()
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	ids := []string{"c3", "c1", "c2"}
	for _, id := range ids {
		if err := s.PutCustomer(ctx, model.Customer{ID: id, Name: "N " + id, CreatedAt: at}); err != nil {
			t.Fatalf("PutCustomer(%s) error = %v", id, err)
		}
	}

	// An update must not move the row.
	if err := s.PutCustomer(ctx, model.Customer{ID: "c3", Name: "Renamed", CreatedAt: at}); err != nil {
		t.Fatalf("PutCustomer(update) error = %v", err)
	}

	customers, err := s.Customers(ctx)
	if err != nil {
		t.Fatalf("Customers() error = %v", err)
	}
	if len(customers) != 3 {
		t.Fatalf("got %d customers, want 3", len(customers))
	}
	for i, id := range ids {
		if customers[i].ID != id {
			t.Errorf("customers[%d].ID = %q, want %q (insertion order)", i, customers[i].ID, id)
		}
	}
	if customers[0].Name != "Renamed" {
		t.Errorf("customers[0].Name = %q, want the updated name", customers[0].Name)
	}
}

func testBillLatestWins(t *testing.T, s backup.Store) {
	ctx := context.Background()
	older := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	bill := model.Bill{
		ID:         "b1",
		CustomerID: "c1",
		Items:      []model.BillItem{{Name: "Rice", Quantity: 1, Rate: 100, Total: 100}},
		GrandTotal: 100,
		CreatedAt:  newer,
		Date:       "2024-01-10",
	}
	if err := s.PutBill(ctx, bill); err != nil {
		t.Fatalf("PutBill() error = %v", err)
	}

	// A stale write on the same ID must not land.
	stale := bill
	stale.GrandTotal = 50
	stale.CreatedAt = older
	if err := s.PutBill(ctx, stale); err != nil {
		t.Fatalf("PutBill(stale) error = %v", err)
	}

	bills, err := s.Bills(ctx)
	if err != nil {
		t.Fatalf("Bills() error = %v", err)
	}
	if len(bills) != 1 {
		t.Fatalf("got %d bills, want 1", len(bills))
	}
	if bills[0].GrandTotal != 100 {
		t.Errorf("GrandTotal = %v, want 100 (stale write must be ignored)", bills[0].GrandTotal)
	}

	// A newer write does land.
	fresh := bill
	fresh.GrandTotal = 150
	fresh.CreatedAt = newer.Add(time.Hour)
	if err := s.PutBill(ctx, fresh); err != nil {
		t.Fatalf("PutBill(fresh) error = %v", err)
	}
	bills, _ = s.Bills(ctx)
	if bills[0].GrandTotal != 150 {
		t.Errorf("GrandTotal = %v, want 150 after newer write", bills[0].GrandTotal)
	}
	if len(bills[0].Items) != 1 || bills[0].Items[0].Name != "Rice" {
		t.Errorf("bill items did not round-trip: %+v", bills[0].Items)
	}
}

func testItemRateHistory(t *testing.T, s backup.Store) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	if err := s.PutItem(ctx, model.Item{ID: "i1", Name: "Rice", Rate: 100}, t0); err != nil {
		t.Fatalf("PutItem() error = %v", err)
	}

	// No history for a brand-new item.
	history, err := s.RateHistory(ctx)
	if err != nil {
		t.Fatalf("RateHistory() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("got %d history entries for new item, want 0", len(history))
	}

	// Same rate: still no entry.
	if err := s.PutItem(ctx, model.Item{ID: "i1", Name: "Rice 25kg", Rate: 100}, t0.Add(time.Hour)); err != nil {
		t.Fatalf("PutItem(rename) error = %v", err)
	}
	history, _ = s.RateHistory(ctx)
	if len(history) != 0 {
		t.Fatalf("got %d history entries after rename, want 0", len(history))
	}

	// Rate change appends one entry.
	changedAt := t0.Add(2 * time.Hour)
	if err := s.PutItem(ctx, model.Item{ID: "i1", Name: "Rice 25kg", Rate: 120}, changedAt); err != nil {
		t.Fatalf("PutItem(rate change) error = %v", err)
	}
	history, _ = s.RateHistory(ctx)
	if len(history) != 1 {
		t.Fatalf("got %d history entries after rate change, want 1", len(history))
	}
	if history[0].ItemID != "i1" || history[0].Rate != 120 {
		t.Errorf("history[0] = %+v, want item i1 at rate 120", history[0])
	}
	if !history[0].ChangedAt.Equal(changedAt) {
		t.Errorf("ChangedAt = %v, want %v", history[0].ChangedAt, changedAt)
	}
}

func testReplaceAll(t *testing.T, s backup.Store) {
	ctx := context.Background()
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	// Pre-existing data that must vanish.
	if err := s.PutCustomer(ctx, model.Customer{ID: "gone", Name: "Old", CreatedAt: at}); err != nil {
		t.Fatalf("PutCustomer() error = %v", err)
	}
	if err := s.PutSetting(ctx, "backup.mode", "manual"); err != nil {
		t.Fatalf("PutSetting() error = %v", err)
	}

	if err := s.ReplaceAll(ctx, testutil.SampleDataset()); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	customers, err := s.Customers(ctx)
	if err != nil {
		t.Fatalf("Customers() error = %v", err)
	}
	if len(customers) != 2 {
		t.Fatalf("got %d customers, want 2", len(customers))
	}
	for _, c := range customers {
		if c.ID == "gone" {
			t.Error("pre-existing customer survived ReplaceAll")
		}
	}

	bills, err := s.Bills(ctx)
	if err != nil {
		t.Fatalf("Bills() error = %v", err)
	}
	if len(bills) != 2 {
		t.Errorf("got %d bills, want 2", len(bills))
	}

	history, err := s.RateHistory(ctx)
	if err != nil {
		t.Fatalf("RateHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Errorf("got %d rate history entries, want 1", len(history))
	}

	// Settings are device-local state, not dataset, and survive.
	mode, err := s.GetSetting(ctx, "backup.mode")
	if err != nil {
		t.Fatalf("GetSetting() error = %v", err)
	}
	if mode != "manual" {
		t.Errorf("setting backup.mode = %q after ReplaceAll, want %q", mode, "manual")
	}
}

func testSettings(t *testing.T, s backup.Store) {
	ctx := context.Background()

	got, err := s.GetSetting(ctx, "missing")
	if err != nil {
		t.Fatalf("GetSetting(missing) error = %v", err)
	}
	if got != "" {
		t.Errorf("GetSetting(missing) = %q, want empty", got)
	}

	if err := s.PutSetting(ctx, "sync.last_synced.alice", "2024-01-15T10:30:00Z"); err != nil {
		t.Fatalf("PutSetting() error = %v", err)
	}
	if err := s.PutSetting(ctx, "sync.last_synced.alice", "2024-01-16T08:00:00Z"); err != nil {
		t.Fatalf("PutSetting(overwrite) error = %v", err)
	}

	got, err = s.GetSetting(ctx, "sync.last_synced.alice")
	if err != nil {
		t.Fatalf("GetSetting() error = %v", err)
	}
	if got != "2024-01-16T08:00:00Z" {
		t.Errorf("GetSetting() = %q, want the overwritten value", got)
	}
}
