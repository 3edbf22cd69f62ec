package observers

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// PurgeArtifacts deletes timeline and usage files in dir whose mtime is
// older than maxAge, returning how many were removed. Subdirectories are
// left alone. Removal errors are joined and reported after the walk so
// one locked file does not stop the sweep.
func PurgeArtifacts(dir string, maxAge time.Duration) (int, error) {
	if dir == "" || maxAge <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var failed []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			failed = append(failed, infoErr)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if rmErr := os.Remove(filepath.Join(dir, entry.Name())); rmErr != nil {
			failed = append(failed, rmErr)
			continue
		}
		removed++
	}
	return removed, errors.Join(failed...)
}
