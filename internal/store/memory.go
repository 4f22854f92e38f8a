package store

import (
	"context"
	"sync"
	"time"

	"billsync/internal/backup"
	"billsync/internal/model"
)

// MemoryStore is an in-memory implementation of the backup.Store
// interface, used in tests and as the browser-like volatile fallback.
// Safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex
	ds model.Dataset

	settings map[string]string
}

var _ backup.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{settings: make(map[string]string)}
}

func (m *MemoryStore) Customers(context.Context) ([]model.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Customer{}, m.ds.Customers...), nil
}

func (m *MemoryStore) Bills(context.Context) ([]model.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Bill{}, m.ds.Bills...), nil
}

func (m *MemoryStore) Payments(context.Context) ([]model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Payment{}, m.ds.Payments...), nil
}

func (m *MemoryStore) Items(context.Context) ([]model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Item{}, m.ds.Items...), nil
}

func (m *MemoryStore) RateHistory(context.Context) ([]model.ItemRateEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.ItemRateEntry{}, m.ds.RateHistory...), nil
}

func (m *MemoryStore) PutCustomer(_ context.Context, c model.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.ds.Customers {
		if existing.ID == c.ID {
			m.ds.Customers[i] = c
			return nil
		}
	}
	m.ds.Customers = append(m.ds.Customers, c)
	return nil
}

func (m *MemoryStore) PutBill(_ context.Context, b model.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.ds.Bills {
		if existing.ID == b.ID {
			// Latest edit wins on the same ID.
			if !b.CreatedAt.Before(existing.CreatedAt) {
				m.ds.Bills[i] = b
			}
			return nil
		}
	}
	m.ds.Bills = append(m.ds.Bills, b)
	return nil
}

func (m *MemoryStore) PutPayment(_ context.Context, p model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.ds.Payments {
		if existing.ID == p.ID {
			m.ds.Payments[i] = p
			return nil
		}
	}
	m.ds.Payments = append(m.ds.Payments, p)
	return nil
}

func (m *MemoryStore) PutItem(_ context.Context, item model.Item, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.ds.Items {
		if existing.ID == item.ID {
			if existing.Rate != item.Rate {
				m.ds.RateHistory = append(m.ds.RateHistory, model.ItemRateEntry{
					ItemID:    item.ID,
					Rate:      item.Rate,
					ChangedAt: at,
				})
			}
			m.ds.Items[i] = item
			return nil
		}
	}
	m.ds.Items = append(m.ds.Items, item)
	return nil
}

// ReplaceAll swaps in the new dataset wholesale. The replacement is
// built before the swap, so a failure cannot leave a partial state.
func (m *MemoryStore) ReplaceAll(_ context.Context, ds *model.Dataset) error {
	next := model.Dataset{
		Customers:   append([]model.Customer{}, ds.Customers...),
		Bills:       append([]model.Bill{}, ds.Bills...),
		Payments:    append([]model.Payment{}, ds.Payments...),
		Items:       append([]model.Item{}, ds.Items...),
		RateHistory: append([]model.ItemRateEntry{}, ds.RateHistory...),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ds = next
	return nil
}

func (m *MemoryStore) GetSetting(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MemoryStore) PutSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryStore) Close() error { return nil }
