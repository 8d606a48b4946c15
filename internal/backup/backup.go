// Package backup produces zip archives of the application data: the SQLite
// database file and the photos directory. Archives are written into the
// configured backup directory with a timestamped name.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mholt/archives"
)

// Run creates a backup archive and returns its path. Missing sources are
// skipped so a fresh install without photos still backs up cleanly.
func Run(ctx context.Context, dbPath, photosPath, backupDir string) (string, error) {
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	sources := make(map[string]string)
	if _, err := os.Stat(dbPath); err == nil {
		sources[dbPath] = filepath.Base(dbPath)
	}
	if info, err := os.Stat(photosPath); err == nil && info.IsDir() {
		sources[photosPath] = "photos"
	}
	if len(sources) == 0 {
		return "", fmt.Errorf("nothing to back up: neither %s nor %s exists", dbPath, photosPath)
	}

	files, err := archives.FilesFromDisk(ctx, nil, sources)
	if err != nil {
		return "", fmt.Errorf("failed to collect backup files: %w", err)
	}

	name := fmt.Sprintf("rehber-backup-%s.zip", time.Now().Format("2006-01-02-150405"))
	target := filepath.Join(backupDir, name)

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create backup archive: %w", err)
	}
	defer out.Close()

	format := archives.CompressedArchive{Archival: archives.Zip{}}
	if err := format.Archive(ctx, out, files); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to write backup archive: %w", err)
	}

	return target, nil
}
