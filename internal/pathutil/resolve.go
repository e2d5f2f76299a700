// Package pathutil resolves aestar's positional backup-root argument to
// an absolute path before it reaches validation, so that "directory must
// be absolute" (spec §6) is checked against what the walker will actually
// read from rather than whatever working-directory-relative or
// ~-prefixed string the user typed on the command line.
package pathutil

import (
	"os"
	"path/filepath"
)

// ResolveAbsolutePath expands a leading "~" and makes path absolute,
// resolving any symlinks in the longest existing prefix of the result.
// Any trailing components that don't exist yet are appended unresolved —
// the archive and database files aestar also touches may not exist on
// disk the first time a backup runs, even though the directory they live
// in already does.
func ResolveAbsolutePath(path string) (string, error) {
	if path == "" {
		return os.Getwd()
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = home + path[1:]
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	// Walk up from abs until an existing ancestor is found, collecting
	// the non-existent trailing components (nearest first) as we go.
	dir := abs
	var tail []string
	for {
		if resolved, serr := filepath.EvalSymlinks(dir); serr == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the filesystem root without finding anything that
			// exists; fall back to the unresolved absolute path.
			return abs, nil
		}
		tail = append([]string{filepath.Base(dir)}, tail...)
		dir = parent
	}
}
