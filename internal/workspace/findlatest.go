package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoMatch is returned by FindLatest when no file matches any pattern
var ErrNoMatch = errors.New("no files match the given patterns")

// FindLatest returns the most recently modified file under dir matching any
// of the glob patterns. Patterns are relative to dir and may reach into
// subdirectories. Ties on modification time resolve to whichever match is
// seen last in traversal order.
func FindLatest(dir string, patterns ...string) (string, error) {
	var (
		latest     string
		latestTime int64 = -1
	)

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			if mod := info.ModTime().UnixNano(); mod >= latestTime {
				latest = match
				latestTime = mod
			}
		}
	}

	if latest == "" {
		return "", fmt.Errorf("%w: %s", ErrNoMatch, dir)
	}
	return latest, nil
}
