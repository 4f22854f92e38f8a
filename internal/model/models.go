package model

import "time"

// Customer is a party that bills and payments are recorded against.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// BillItem is a single line on a bill.
type BillItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Rate     float64 `json:"rate"`
	Total    float64 `json:"total"`
}

// Bill is an invoice issued to a customer. A bill may be edited after
// creation; the edit keeps the same ID and produces a new CreatedAt,
// so when duplicate IDs meet, latest CreatedAt wins.
type Bill struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customerId"`
	Items      []BillItem `json:"items"`
	Discount   float64    `json:"discount,omitempty"`
	GrandTotal float64    `json:"grandTotal"`
	CreatedAt  time.Time  `json:"createdAt"`
	Date       string     `json:"date"` // business date, "2006-01-02"
}

// Payment is money received from a customer.
type Payment struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customerId"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"` // business date, "2006-01-02"
	Method     string  `json:"method,omitempty"`
}

// Item is an entry in the item master with its current rate.
type Item struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Rate float64 `json:"rate"`
}

// ItemRateEntry records one historical rate change for an item.
// Entries are append-only: they form an audit trail, not a cache.
type ItemRateEntry struct {
	ItemID    string    `json:"itemId"`
	Rate      float64   `json:"rate"`
	ChangedAt time.Time `json:"changedAt"`
}

// Analytics is the derived business aggregate carried inside a snapshot
// body. Outstanding is billed minus paid.
type Analytics struct {
	TotalBilled float64            `json:"totalBilled"`
	TotalPaid   float64            `json:"totalPaid"`
	Outstanding float64            `json:"outstanding"`
	ByCustomer  map[string]float64 `json:"byCustomer,omitempty"` // customer ID -> outstanding
}

// Dataset is the full authoritative on-device dataset: the five source
// collections a snapshot is built from and a restore replaces.
type Dataset struct {
	Customers   []Customer
	Bills       []Bill
	Payments    []Payment
	Items       []Item
	RateHistory []ItemRateEntry
}
