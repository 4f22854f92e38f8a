package backup

import (
	"context"
	"fmt"

	"billsync/internal/model"
	"billsync/internal/snapshot"
)

// Builder assembles snapshots from the authoritative store.
type Builder struct {
	store  Store
	logger Logger
	clock  Clock
}

// NewBuilder creates a Builder reading from store.
func NewBuilder(store Store, logger Logger, clock Clock) *Builder {
	return &Builder{store: store, logger: logger, clock: clock}
}

// Build reads the five source collections, drops orphaned bills and
// payments, computes the derived metadata, and fingerprints the body.
// Partial referential corruption never blocks a backup: orphans are
// logged and excluded. An empty store produces a valid snapshot with
// zero counts and empty date ranges.
//
// Order matters: everything derived from the body is computed before
// fingerprinting, and the fingerprint input is exactly what validation
// will re-serialize.
func (b *Builder) Build(ctx context.Context) (*snapshot.Snapshot, error) {
	customers, err := b.store.Customers(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading customers: %w", err)
	}
	bills, err := b.store.Bills(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading bills: %w", err)
	}
	payments, err := b.store.Payments(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading payments: %w", err)
	}
	items, err := b.store.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}
	history, err := b.store.RateHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading rate history: %w", err)
	}

	customerIDs := make(map[string]bool, len(customers))
	for _, c := range customers {
		customerIDs[c.ID] = true
	}

	keptBills := make([]model.Bill, 0, len(bills))
	for _, bill := range bills {
		if customerIDs[bill.CustomerID] {
			keptBills = append(keptBills, bill)
		}
	}
	if dropped := len(bills) - len(keptBills); dropped > 0 {
		b.logger.Warn("dropping orphaned bills from backup", "count", dropped)
	}

	keptPayments := make([]model.Payment, 0, len(payments))
	for _, p := range payments {
		if customerIDs[p.CustomerID] {
			keptPayments = append(keptPayments, p)
		}
	}
	if dropped := len(payments) - len(keptPayments); dropped > 0 {
		b.logger.Warn("dropping orphaned payments from backup", "count", dropped)
	}

	body := snapshot.Body{
		Customers:         customers,
		Bills:             keptBills,
		Payments:          keptPayments,
		Items:             items,
		ItemRateHistory:   history,
		BusinessAnalytics: computeAnalytics(keptBills, keptPayments),
	}

	fingerprint, err := snapshot.Fingerprint(&body)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting snapshot body: %w", err)
	}

	return &snapshot.Snapshot{
		SchemaVersion: snapshot.SchemaVersion,
		CreatedAt:     b.clock.Now().UTC(),
		Body:          body,
		Metadata: snapshot.Metadata{
			Checksum: fingerprint,
			Counts: snapshot.Counts{
				Customers:       len(customers),
				Bills:           len(keptBills),
				Payments:        len(keptPayments),
				Items:           len(items),
				ItemRateHistory: len(history),
			},
			TotalAmount: snapshot.TotalAmount{
				Billed:      body.BusinessAnalytics.TotalBilled,
				Paid:        body.BusinessAnalytics.TotalPaid,
				Outstanding: body.BusinessAnalytics.Outstanding,
			},
			DateRange: computeDateRange(keptBills, keptPayments),
		},
	}, nil
}

// computeAnalytics derives the business aggregate from the filtered
// collections.
func computeAnalytics(bills []model.Bill, payments []model.Payment) model.Analytics {
	byCustomer := make(map[string]float64)

	var billed float64
	for _, b := range bills {
		billed += b.GrandTotal
		byCustomer[b.CustomerID] += b.GrandTotal
	}

	var paid float64
	for _, p := range payments {
		paid += p.Amount
		byCustomer[p.CustomerID] -= p.Amount
	}

	if len(byCustomer) == 0 {
		byCustomer = nil
	}

	return model.Analytics{
		TotalBilled: billed,
		TotalPaid:   paid,
		Outstanding: billed - paid,
		ByCustomer:  byCustomer,
	}
}

// computeDateRange finds min/max business dates. Dates are stored as
// "2006-01-02" strings, so lexicographic comparison is date order.
func computeDateRange(bills []model.Bill, payments []model.Payment) *snapshot.DateRange {
	r := &snapshot.DateRange{}

	for _, b := range bills {
		if r.FirstBill == "" || b.Date < r.FirstBill {
			r.FirstBill = b.Date
		}
		if b.Date > r.LastBill {
			r.LastBill = b.Date
		}
	}

	for _, p := range payments {
		if r.FirstPayment == "" || p.Date < r.FirstPayment {
			r.FirstPayment = p.Date
		}
		if p.Date > r.LastPayment {
			r.LastPayment = p.Date
		}
	}

	return r
}
