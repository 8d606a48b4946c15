package backup_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rehberapp/rehber-go/internal/backup"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "rehber.db")
	photosPath := filepath.Join(dir, "photos")
	backupDir := filepath.Join(dir, "backups")

	if err := os.WriteFile(dbPath, []byte("sqlite data"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(photosPath, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(photosPath, "1.jpg"), []byte("jpeg data"), 0644); err != nil {
		t.Fatal(err)
	}

	target, err := backup.Run(context.Background(), dbPath, photosPath, backupDir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.HasSuffix(target, ".zip") {
		t.Errorf("Expected a .zip archive, got %s", target)
	}

	// The archive must contain the database and the photos directory.
	reader, err := zip.OpenReader(target)
	if err != nil {
		t.Fatalf("Backup is not a readable zip: %v", err)
	}
	defer reader.Close()

	names := make(map[string]bool)
	for _, f := range reader.File {
		names[f.Name] = true
	}
	if !names["rehber.db"] {
		t.Errorf("Archive missing database file, got entries: %v", names)
	}
	foundPhoto := false
	for name := range names {
		if strings.HasPrefix(name, "photos") && strings.HasSuffix(name, "1.jpg") {
			foundPhoto = true
		}
	}
	if !foundPhoto {
		t.Errorf("Archive missing photo entry, got entries: %v", names)
	}
}

func TestRunMissingSources(t *testing.T) {
	dir := t.TempDir()
	_, err := backup.Run(context.Background(), filepath.Join(dir, "missing.db"), filepath.Join(dir, "missing"), filepath.Join(dir, "backups"))
	if err == nil {
		t.Fatal("Expected error when nothing exists to back up, but got nil")
	}
}

func TestRunSkipsMissingPhotos(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "rehber.db")
	if err := os.WriteFile(dbPath, []byte("sqlite data"), 0644); err != nil {
		t.Fatal(err)
	}

	target, err := backup.Run(context.Background(), dbPath, filepath.Join(dir, "missing"), filepath.Join(dir, "backups"))
	if err != nil {
		t.Fatalf("Run failed without photos directory: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("Backup archive was not created: %v", err)
	}
}
