package archive

import (
	"os"
	"path/filepath"
)

// Probe reports platform capabilities. The archive factory consults it
// once at startup; there are no scattered runtime platform checks.
type Probe interface {
	// IsNativeLike reports whether the platform offers durable private
	// filesystem storage (device-like) as opposed to a key/value bucket
	// only (browser-like).
	IsNativeLike() bool
}

// DirProbe decides native-likeness by attempting a write in the
// configured private directory.
type DirProbe struct {
	PrivateDir string
}

func (p DirProbe) IsNativeLike() bool {
	if p.PrivateDir == "" {
		return false
	}
	if err := os.MkdirAll(p.PrivateDir, 0755); err != nil {
		return false
	}
	f, err := os.CreateTemp(p.PrivateDir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(filepath.Clean(name))
	return true
}

// StaticProbe returns a fixed answer. Use in tests.
type StaticProbe bool

func (p StaticProbe) IsNativeLike() bool { return bool(p) }
