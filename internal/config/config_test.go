package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		DeviceID: "test-device-abc",
		BaseDir:  "/home/user/.local/share/billsync",
		LogDir:   "/home/user/.local/share/billsync/log",
		Store:    StoreConfig{Type: "sqlite", DataDir: "/home/user/.local/share/billsync/data"},
		Archive: ArchiveConfig{
			Type:       "filesystem",
			PrivateDir: "/home/user/.local/share/billsync/backups",
			SharedDir:  "/home/user/Documents/BillSync",
			Keep:       5,
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  "/home/user/.local/share/billsync/keys/billsync.pub",
			PrivateKeyPath: "/home/user/.local/share/billsync/keys/billsync.key",
		},
		Backup: BackupConfig{Mode: "automatic", FrequencyHours: 24},
		Sync: SyncConfig{
			Principal:       "alice",
			Remote:          RemoteConfig{Type: "s3", S3Bucket: "billsync-docs", S3Region: "ap-south-1"},
			IntervalMinutes: 15,
			TimeoutSeconds:  30,
			MaxAttempts:     3,
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.DeviceID != original.DeviceID {
		t.Errorf("DeviceID = %q, want %q", got.DeviceID, original.DeviceID)
	}
	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Store.Type != "sqlite" {
		t.Errorf("Store.Type = %q, want %q", got.Store.Type, "sqlite")
	}
	if got.Archive.SharedDir != original.Archive.SharedDir {
		t.Errorf("Archive.SharedDir = %q, want %q", got.Archive.SharedDir, original.Archive.SharedDir)
	}
	if got.Archive.Keep != 5 {
		t.Errorf("Archive.Keep = %d, want 5", got.Archive.Keep)
	}
	if got.Encryption.PublicKeyPath != original.Encryption.PublicKeyPath {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", got.Encryption.PublicKeyPath, original.Encryption.PublicKeyPath)
	}
	if got.Backup.FrequencyHours != 24 {
		t.Errorf("Backup.FrequencyHours = %d, want 24", got.Backup.FrequencyHours)
	}
	if got.Sync.Principal != "alice" {
		t.Errorf("Sync.Principal = %q, want %q", got.Sync.Principal, "alice")
	}
	if got.Sync.Remote.Type != "s3" {
		t.Errorf("Sync.Remote.Type = %q, want %q", got.Sync.Remote.Type, "s3")
	}
	if got.Sync.Remote.S3Bucket != "billsync-docs" {
		t.Errorf("Sync.Remote.S3Bucket = %q, want %q", got.Sync.Remote.S3Bucket, "billsync-docs")
	}
	if got.Sync.IntervalMinutes != 15 {
		t.Errorf("Sync.IntervalMinutes = %d, want 15", got.Sync.IntervalMinutes)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("device-1", "/data/billsync")

	if cfg.DeviceID != "device-1" {
		t.Errorf("DeviceID = %q, want %q", cfg.DeviceID, "device-1")
	}
	if cfg.BaseDir != "/data/billsync" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/billsync")
	}
	if cfg.LogDir != "/data/billsync/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/billsync/log")
	}
	if cfg.Store.DataDir != "/data/billsync/data" {
		t.Errorf("Store.DataDir = %q, want %q", cfg.Store.DataDir, "/data/billsync/data")
	}
	if cfg.Archive.PrivateDir != "/data/billsync/backups" {
		t.Errorf("Archive.PrivateDir = %q, want %q", cfg.Archive.PrivateDir, "/data/billsync/backups")
	}
	if cfg.Encryption.PublicKeyPath != "/data/billsync/keys/billsync.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/billsync/keys/billsync.pub")
	}
	if cfg.Backup.Mode != "manual" {
		t.Errorf("Backup.Mode = %q, want %q", cfg.Backup.Mode, "manual")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "billsync.toml")
		cfg := NewConfig("d1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "billsync.toml")
		cfg := NewConfig("d1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "billsync.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Store = StoreConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.DeviceID != "read-test" {
			t.Errorf("DeviceID = %q, want %q", got.DeviceID, "read-test")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/billsync.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
