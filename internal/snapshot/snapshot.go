// Package snapshot defines the portable backup artifact: a complete,
// self-describing, fingerprinted copy of the billing dataset, plus the
// validation that gates every import.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"billsync/internal/model"
)

// SchemaVersion is the snapshot format version written by this build.
const SchemaVersion = "2.0"

// Snapshot is the portable artifact. The dataset lives in Body; Metadata
// carries the fingerprint plus derived preview fields that are never
// trusted for validation.
type Snapshot struct {
	SchemaVersion string    `json:"schemaVersion"`
	CreatedAt     time.Time `json:"createdAt"`
	Body          Body      `json:"body"`
	Metadata      Metadata  `json:"metadata"`
}

// Body is the snapshot payload and the exact fingerprint input.
type Body struct {
	Customers         []model.Customer      `json:"customers"`
	Bills             []model.Bill          `json:"bills"`
	Payments          []model.Payment       `json:"payments"`
	Items             []model.Item          `json:"items"`
	ItemRateHistory   []model.ItemRateEntry `json:"itemRateHistory"`
	BusinessAnalytics model.Analytics       `json:"businessAnalytics"`
}

// Metadata holds the checksum and human-facing summary fields.
// Checksum and DateRange are absent in legacy artifacts.
type Metadata struct {
	Checksum    string      `json:"checksum,omitempty"`
	Counts      Counts      `json:"counts"`
	TotalAmount TotalAmount `json:"totalAmount"`
	DateRange   *DateRange  `json:"dateRange,omitempty"`
}

// Counts are per-collection record counts, computed at build time.
type Counts struct {
	Customers       int `json:"customers"`
	Bills           int `json:"bills"`
	Payments        int `json:"payments"`
	Items           int `json:"items"`
	ItemRateHistory int `json:"itemRateHistory"`
}

// TotalAmount summarizes money movement. Outstanding = Billed - Paid.
type TotalAmount struct {
	Billed      float64 `json:"billed"`
	Paid        float64 `json:"paid"`
	Outstanding float64 `json:"outstanding"`
}

// DateRange holds min/max business dates per collection, formatted
// "2006-01-02". Empty string when the collection is empty.
type DateRange struct {
	FirstBill    string `json:"firstBill"`
	LastBill     string `json:"lastBill"`
	FirstPayment string `json:"firstPayment"`
	LastPayment  string `json:"lastPayment"`
}

// Encode serializes a snapshot to its artifact bytes.
func Encode(s *Snapshot) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return raw, nil
}

// utf8BOM is stripped from artifacts before parsing; some file transfer
// paths prepend it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode strips any BOM and surrounding whitespace, then parses the
// artifact. Callers wanting validation should use Validate instead.
func decode(artifact []byte) (*Snapshot, error) {
	trimmed := bytes.TrimPrefix(bytes.TrimSpace(artifact), utf8BOM)
	trimmed = bytes.TrimSpace(trimmed)

	var s Snapshot
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &s, nil
}
