package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint computes the content digest of a snapshot body: hex
// SHA-256 over the canonical serialization. The serialization is
// responsible for canonical ordering (fixed struct field order; map
// keys sorted by encoding/json), so the digest is deterministic across
// platforms. Pure function: same body, same digest, always.
func Fingerprint(body *Body) (string, error) {
	raw, err := canonicalBody(body)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalBody produces the exact byte sequence the fingerprint is
// computed over. Build and validation must both go through this path;
// any divergence between them reads as corruption.
func canonicalBody(body *Body) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("serializing snapshot body: %w", err)
	}
	return raw, nil
}
