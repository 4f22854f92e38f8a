package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"billsync/internal/backup"
	"billsync/internal/model"
	"billsync/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the backup.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ backup.Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store connection.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured
// SQLite connection. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent: each new
	// pool connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrateUp brings the schema to the latest version.
func (s *SQLiteStore) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// Collection reads. All order by rowid, preserving insertion order.

func (s *SQLiteStore) Customers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM customers ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying customers: %w", err)
	}
	defer rows.Close()

	out := []model.Customer{}
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Bills(ctx context.Context) ([]model.Bill, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, customer_id, items_json, discount, grand_total, created_at, business_date FROM bills ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying bills: %w", err)
	}
	defer rows.Close()

	out := []model.Bill{}
	for rows.Next() {
		var b model.Bill
		var itemsJSON string
		if err := rows.Scan(&b.ID, &b.CustomerID, &itemsJSON, &b.Discount, &b.GrandTotal, &b.CreatedAt, &b.Date); err != nil {
			return nil, fmt.Errorf("scanning bill: %w", err)
		}
		if err := json.Unmarshal([]byte(itemsJSON), &b.Items); err != nil {
			return nil, fmt.Errorf("decoding bill items for %s: %w", b.ID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Payments(ctx context.Context) ([]model.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, customer_id, amount, business_date, method FROM payments ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying payments: %w", err)
	}
	defer rows.Close()

	out := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.Amount, &p.Date, &p.Method); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Items(ctx context.Context) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, rate FROM items ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	out := []model.Item{}
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Rate); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RateHistory(ctx context.Context) ([]model.ItemRateEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT item_id, rate, changed_at FROM item_rate_history ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying rate history: %w", err)
	}
	defer rows.Close()

	out := []model.ItemRateEntry{}
	for rows.Next() {
		var e model.ItemRateEntry
		if err := rows.Scan(&e.ItemID, &e.Rate, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("scanning rate history entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CRUD writes.

func (s *SQLiteStore) PutCustomer(ctx context.Context, c model.Customer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, created_at = excluded.created_at`,
		c.ID, c.Name, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("writing customer: %w", err)
	}
	return nil
}

// PutBill inserts or updates a bill. On an existing ID the write only
// lands when the incoming CreatedAt is not older: latest edit wins.
func (s *SQLiteStore) PutBill(ctx context.Context, b model.Bill) error {
	itemsJSON, err := json.Marshal(b.Items)
	if err != nil {
		return fmt.Errorf("encoding bill items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bills (id, customer_id, items_json, discount, grand_total, created_at, business_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_id = excluded.customer_id,
			items_json = excluded.items_json,
			discount = excluded.discount,
			grand_total = excluded.grand_total,
			created_at = excluded.created_at,
			business_date = excluded.business_date
		WHERE excluded.created_at >= bills.created_at`,
		b.ID, b.CustomerID, string(itemsJSON), b.Discount, b.GrandTotal, b.CreatedAt, b.Date)
	if err != nil {
		return fmt.Errorf("writing bill: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutPayment(ctx context.Context, p model.Payment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, customer_id, amount, business_date, method) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_id = excluded.customer_id,
			amount = excluded.amount,
			business_date = excluded.business_date,
			method = excluded.method`,
		p.ID, p.CustomerID, p.Amount, p.Date, p.Method)
	if err != nil {
		return fmt.Errorf("writing payment: %w", err)
	}
	return nil
}

// PutItem inserts or updates an item. A rate change on an existing item
// appends a rate history entry stamped at; the history is append-only.
func (s *SQLiteStore) PutItem(ctx context.Context, item model.Item, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var oldRate float64
	rateChanged := false
	err = tx.QueryRowContext(ctx, "SELECT rate FROM items WHERE id = ?", item.ID).Scan(&oldRate)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// New item; no history entry.
	case err != nil:
		return fmt.Errorf("reading current rate: %w", err)
	default:
		rateChanged = oldRate != item.Rate
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO items (id, name, rate) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, rate = excluded.rate`,
		item.ID, item.Name, item.Rate)
	if err != nil {
		return fmt.Errorf("writing item: %w", err)
	}

	if rateChanged {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO item_rate_history (item_id, rate, changed_at) VALUES (?, ?, ?)",
			item.ID, item.Rate, at)
		if err != nil {
			return fmt.Errorf("appending rate history: %w", err)
		}
	}

	return tx.Commit()
}

// ReplaceAll replaces all five collections in one transaction. SQLite
// gives the all-or-none contract directly: any failure rolls back and
// the prior dataset is untouched.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, ds *model.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"customers", "bills", "payments", "items", "item_rate_history"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, c := range ds.Customers {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO customers (id, name, created_at) VALUES (?, ?, ?)",
			c.ID, c.Name, c.CreatedAt); err != nil {
			return fmt.Errorf("inserting customer %s: %w", c.ID, err)
		}
	}

	for _, b := range ds.Bills {
		itemsJSON, err := json.Marshal(b.Items)
		if err != nil {
			return fmt.Errorf("encoding bill items: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO bills (id, customer_id, items_json, discount, grand_total, created_at, business_date) VALUES (?, ?, ?, ?, ?, ?, ?)",
			b.ID, b.CustomerID, string(itemsJSON), b.Discount, b.GrandTotal, b.CreatedAt, b.Date); err != nil {
			return fmt.Errorf("inserting bill %s: %w", b.ID, err)
		}
	}

	for _, p := range ds.Payments {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO payments (id, customer_id, amount, business_date, method) VALUES (?, ?, ?, ?, ?)",
			p.ID, p.CustomerID, p.Amount, p.Date, p.Method); err != nil {
			return fmt.Errorf("inserting payment %s: %w", p.ID, err)
		}
	}

	for _, it := range ds.Items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO items (id, name, rate) VALUES (?, ?, ?)",
			it.ID, it.Name, it.Rate); err != nil {
			return fmt.Errorf("inserting item %s: %w", it.ID, err)
		}
	}

	for _, e := range ds.RateHistory {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO item_rate_history (item_id, rate, changed_at) VALUES (?, ?, ?)",
			e.ItemID, e.Rate, e.ChangedAt); err != nil {
			return fmt.Errorf("inserting rate history for %s: %w", e.ItemID, err)
		}
	}

	return tx.Commit()
}

// Settings.

func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
