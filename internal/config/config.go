// Package config resolves the on-disk NAH root and host-wide tunables from
// the environment, the same way tsuku resolves $TSUKU_HOME and its cache
// knobs: read an env var, validate it, clamp to a sane range, and fall back
// to a default with a stderr warning rather than failing outright.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// EnvRoot is the environment variable naming the default NAH root (§6).
	EnvRoot = "NAH_ROOT"

	// EnvOverrideEnvironment is the only supported process-env override
	// target recognized by the composer (§4.E step 10).
	EnvOverrideEnvironment = "NAH_OVERRIDE_ENVIRONMENT"

	// EnvLockTimeout configures how long the install pipeline waits for the
	// exclusive registry lock (§5) before giving up.
	EnvLockTimeout = "NAH_LOCK_TIMEOUT"

	// DefaultLockTimeout is used when EnvLockTimeout is unset or invalid.
	DefaultLockTimeout = 30 * time.Second
)

// GetLockTimeout returns the configured registry lock timeout from
// NAH_LOCK_TIMEOUT. Falls back to DefaultLockTimeout on unset or invalid
// input, and clamps to [1s, 10m].
func GetLockTimeout() time.Duration {
	envValue := os.Getenv(EnvLockTimeout)
	if envValue == "" {
		return DefaultLockTimeout
	}

	duration, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			EnvLockTimeout, envValue, DefaultLockTimeout)
		return DefaultLockTimeout
	}

	if duration < 1*time.Second {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum 1s\n", EnvLockTimeout, duration)
		return 1 * time.Second
	}
	if duration > 10*time.Minute {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum 10m\n", EnvLockTimeout, duration)
		return 10 * time.Minute
	}

	return duration
}

// DefaultRootOverride can be set by the binary's main package (via ldflags)
// to change the default root for dev builds. NAH_ROOT still takes precedence.
var DefaultRootOverride string

// Root holds the resolved on-disk layout under a NAH root (§6).
type Root struct {
	Dir string // the NAH root itself

	AppsDir  string // <root>/apps
	NaksDir  string // <root>/naks
	HostFile string // <root>/host/host.json

	RegistryDir     string // <root>/registry
	RegistryAppsDir string // <root>/registry/apps
	RegistryNaksDir string // <root>/registry/naks
	LocksDir        string // <root>/registry/locks
}

// DefaultRoot resolves the NAH root from NAH_ROOT, falling back to
// DefaultRootOverride, then to $HOME/.nah.
func DefaultRoot() (*Root, error) {
	dir := os.Getenv(EnvRoot)
	if dir == "" {
		if DefaultRootOverride != "" {
			dir = DefaultRootOverride
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get user home directory: %w", err)
			}
			dir = filepath.Join(home, ".nah")
		}
	}
	return NewRoot(dir), nil
}

// NewRoot computes the layout under an explicit root directory.
func NewRoot(dir string) *Root {
	registryDir := filepath.Join(dir, "registry")
	return &Root{
		Dir:             dir,
		AppsDir:         filepath.Join(dir, "apps"),
		NaksDir:         filepath.Join(dir, "naks"),
		HostFile:        filepath.Join(dir, "host", "host.json"),
		RegistryDir:     registryDir,
		RegistryAppsDir: filepath.Join(registryDir, "apps"),
		RegistryNaksDir: filepath.Join(registryDir, "naks"),
		LocksDir:        filepath.Join(registryDir, "locks"),
	}
}

// EnsureDirectories creates every directory in the layout that compose-time
// reads don't require to pre-exist but install-time writes do.
func (r *Root) EnsureDirectories() error {
	dirs := []string{
		r.Dir,
		r.AppsDir,
		r.NaksDir,
		filepath.Dir(r.HostFile),
		r.RegistryDir,
		r.RegistryAppsDir,
		r.RegistryNaksDir,
		r.LocksDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// AppInstallRecordPath returns <root>/registry/apps/<id>@<version>.json (§4.G).
func (r *Root) AppInstallRecordPath(id, version string) string {
	return filepath.Join(r.RegistryAppsDir, fmt.Sprintf("%s@%s.json", id, version))
}

// NAKInstallRecordPath returns <root>/registry/naks/<id>@<version>.json (§4.G).
func (r *Root) NAKInstallRecordPath(id, version string) string {
	return filepath.Join(r.RegistryNaksDir, fmt.Sprintf("%s@%s.json", id, version))
}

// AppTreeDir returns <root>/apps/<id>-<version>/ (§4.G).
func (r *Root) AppTreeDir(id, version string) string {
	return filepath.Join(r.AppsDir, fmt.Sprintf("%s-%s", id, version))
}

// NAKTreeDir returns <root>/naks/<id>/<version>/ (§4.G).
func (r *Root) NAKTreeDir(id, version string) string {
	return filepath.Join(r.NaksDir, id, version)
}

// LockPath returns <root>/registry/locks/<op>.lock (§5).
func (r *Root) LockPath(op string) string {
	return filepath.Join(r.LocksDir, op+".lock")
}

// ParseByteSize parses a human-readable byte size string into bytes.
// Accepts plain numbers (65536), KB/K, MB/M, GB/G, case-insensitive.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}
	s = strings.ToUpper(s)

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	var numStr, suffix string
	for i, c := range s {
		if c >= '0' && c <= '9' || c == '.' {
			numStr += string(c)
		} else {
			suffix = s[i:]
			break
		}
	}
	if numStr == "" {
		return 0, fmt.Errorf("invalid size format: %q", s)
	}

	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size number: %q", numStr)
	}

	var multiplier float64
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("invalid size suffix: %q", suffix)
	}

	return int64(num * multiplier), nil
}
