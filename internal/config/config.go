package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for billsync.
type Config struct {
	DeviceID   string           `toml:"device_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Store      StoreConfig      `toml:"store"`
	Archive    ArchiveConfig    `toml:"archive"`
	Encryption EncryptionConfig `toml:"encryption"`
	Backup     BackupConfig     `toml:"backup"`
	Sync       SyncConfig       `toml:"sync"`
}

// StoreConfig represents configuration for the authoritative dataset store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ArchiveConfig represents configuration for the backup artifact archive.
// An empty Type selects a strategy at startup via the platform probe:
// "filesystem" on native-like platforms, "localstore" otherwise.
type ArchiveConfig struct {
	Type string `toml:"type"` // "", "filesystem", "localstore", or "memory"

	// Filesystem-specific fields (only used when Type == "filesystem")
	PrivateDir string `toml:"private_dir,omitempty"` // app-private, must be writable
	SharedDir  string `toml:"shared_dir,omitempty"`  // user-visible, best-effort

	// Localstore-specific fields (only used when Type == "localstore")
	IndexPath string `toml:"index_path,omitempty"`
	ExportDir string `toml:"export_dir,omitempty"`

	Keep int `toml:"keep"` // retention cap; 0 selects the default (5)
}

// EncryptionConfig holds paths to the age key pair used for artifact
// encryption. An empty Type disables artifact encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "", "age", or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// BackupConfig holds the backup schedule settings.
type BackupConfig struct {
	Mode           string `toml:"mode"`            // "manual" (default) or "automatic"
	FrequencyHours int    `toml:"frequency_hours"` // automatic mode cadence
}

// SyncConfig holds cloud reconciliation settings. Principal is the
// opaque signed-in account ID; empty means signed out.
type SyncConfig struct {
	Principal       string       `toml:"principal,omitempty"`
	Remote          RemoteConfig `toml:"remote"`
	IntervalMinutes int          `toml:"interval_minutes"`
	TimeoutSeconds  int          `toml:"timeout_seconds"`
	MaxAttempts     int          `toml:"max_attempts"`
}

// RemoteConfig represents configuration for the remote document store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type string `toml:"type"` // "s3", "filesystem", or "memory"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(deviceID, baseDir string) *Config {
	return &Config{
		DeviceID: deviceID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Store: StoreConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Archive: ArchiveConfig{
			PrivateDir: filepath.Join(baseDir, "backups"),
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "billsync.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "billsync.key"),
		},
		Backup: BackupConfig{Mode: "manual"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
