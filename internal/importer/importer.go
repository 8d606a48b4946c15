// Package importer ingests e-Okul student export files. CSV files dropped
// into the import directory are parsed, upserted into the student table and
// renamed with a .done suffix so they are not picked up twice.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rehberapp/rehber-go/internal/models"
	"github.com/rehberapp/rehber-go/internal/store"
)

// e-Okul exports are semicolon separated with a fixed header row.
var expectedHeader = []string{"tc_kimlik_no", "ad", "soyad", "sinif"}

type Importer struct {
	st *store.Store
}

func New(st *store.Store) *Importer {
	return &Importer{st: st}
}

// ImportFile parses a single e-Okul CSV export and upserts every row.
// It returns the number of imported students.
func (im *Importer) ImportFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read header row: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return 0, err
	}

	imported := 0
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("failed to read row %d: %w", line, err)
		}

		nationalID := strings.TrimSpace(record[0])
		if nationalID == "" {
			log.Printf("Skipping row %d of %s: empty national ID", line, filepath.Base(path))
			continue
		}

		student := &models.Student{
			NationalID: nationalID,
			FirstName:  strings.TrimSpace(record[1]),
			LastName:   strings.TrimSpace(record[2]),
			ClassName:  strings.TrimSpace(record[3]),
			RiskLevel:  "none",
		}
		if err := im.st.UpsertStudent(student); err != nil {
			return imported, fmt.Errorf("failed to upsert student %s: %w", nationalID, err)
		}
		imported++
	}

	return imported, nil
}

// ScanDirectory imports every pending CSV file in dir. Successfully
// imported files are renamed with a .done suffix; failed files are left in
// place so a corrected drop can be retried.
func (im *Importer) ScanDirectory(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read import directory: %w", err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		count, err := im.ImportFile(path)
		if err != nil {
			log.Printf("Import of %s failed: %v", entry.Name(), err)
			continue
		}

		if err := os.Rename(path, path+".done"); err != nil {
			log.Printf("Failed to rename imported file %s: %v", entry.Name(), err)
		}
		log.Printf("Imported %d students from %s", count, entry.Name())
		total += count
	}

	return total, nil
}

func checkHeader(header []string) error {
	if len(header) < len(expectedHeader) {
		return fmt.Errorf("unexpected header: got %d columns, want %d", len(header), len(expectedHeader))
	}
	for i, want := range expectedHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return fmt.Errorf("unexpected header column %d: got %q, want %q", i, header[i], want)
		}
	}
	return nil
}
