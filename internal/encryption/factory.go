package encryption

import (
	"fmt"

	"billsync/internal/backup"
	"billsync/internal/config"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. An empty type means encryption is disabled and returns a nil
// Encryptor; callers treat nil as "store backups in plaintext".
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (backup.Encryptor, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
