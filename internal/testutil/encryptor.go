package testutil

import (
	"billsync/internal/backup"
	"billsync/internal/encryption"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() backup.Encryptor {
	return encryption.NewTestEncryptor()
}
