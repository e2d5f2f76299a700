// Package config loads and validates aestar's backup configuration: the
// CLI flags from spec §6 plus the Go-native additions spec §9 calls for
// (sector size, buffer size, sync/pad toggles), and an optional
// ~/.config/aestar/aestar.ini for defaults a site wants to avoid retyping
// on every invocation.
package config

import (
	"os"
	"path/filepath"
)

// DefaultIniPath returns the default location of the optional per-user INI
// defaults file, $XDG_CONFIG_HOME/aestar/aestar.ini (or the platform
// equivalent via os.UserConfigDir).
func DefaultIniPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return filepath.Join(os.TempDir(), "aestar", "aestar.ini")
		}
		return filepath.Join(home, ".config", "aestar", "aestar.ini")
	}
	return filepath.Join(dir, "aestar", "aestar.ini")
}

// DefaultLogDirectory returns the per-user aestar log directory under
// os.UserConfigDir, falling back to ~/.config or the temp directory. The
// --logfile flag does not consult it: cmd/aestar opens the given path as is.
func DefaultLogDirectory() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return filepath.Join(os.TempDir(), "aestar", "logs")
		}
		return filepath.Join(home, ".config", "aestar", "logs")
	}
	return filepath.Join(dir, "aestar", "logs")
}
