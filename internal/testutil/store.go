package testutil

import (
	"context"
	"testing"
	"time"

	"billsync/internal/backup"
	"billsync/internal/model"
	"billsync/internal/store"
)

// NewTestStore creates an empty in-memory store.
func NewTestStore(t *testing.T) backup.Store {
	t.Helper()
	return store.NewMemoryStore()
}

// SampleDataset returns a small, internally consistent dataset: two
// customers, two bills, one payment, two items with one rate change.
func SampleDataset() *model.Dataset {
	jan10 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	jan12 := time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)

	return &model.Dataset{
		Customers: []model.Customer{
			{ID: "c1", Name: "Acme Traders", CreatedAt: jan10},
			{ID: "c2", Name: "Bharat Stores", CreatedAt: jan10},
		},
		Bills: []model.Bill{
			{
				ID:         "b1",
				CustomerID: "c1",
				Items: []model.BillItem{
					{Name: "Rice 25kg", Quantity: 2, Rate: 1200, Total: 2400},
				},
				GrandTotal: 2400,
				CreatedAt:  jan10,
				Date:       "2024-01-10",
			},
			{
				ID:         "b2",
				CustomerID: "c2",
				Items: []model.BillItem{
					{Name: "Oil 5L", Quantity: 1, Rate: 650, Total: 650},
				},
				Discount:   50,
				GrandTotal: 600,
				CreatedAt:  jan12,
				Date:       "2024-01-12",
			},
		},
		Payments: []model.Payment{
			{ID: "p1", CustomerID: "c1", Amount: 1000, Date: "2024-01-11", Method: "cash"},
		},
		Items: []model.Item{
			{ID: "i1", Name: "Rice 25kg", Rate: 1200},
			{ID: "i2", Name: "Oil 5L", Rate: 650},
		},
		RateHistory: []model.ItemRateEntry{
			{ItemID: "i1", Rate: 1150, ChangedAt: jan10},
		},
	}
}

// NewSeededStore creates an in-memory store preloaded with SampleDataset.
func NewSeededStore(t *testing.T) backup.Store {
	t.Helper()
	s := store.NewMemoryStore()
	if err := s.ReplaceAll(context.Background(), SampleDataset()); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	return s
}
