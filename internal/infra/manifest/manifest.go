// Package manifest reads the batch manifest: a CSV listing, per row, a
// document directory and the external reference id it belongs to.
package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/boddenberg/statement-recon-go/internal/domain"
)

// Manifest column names.
const (
	ColumnDirectory   = "file_path"
	ColumnReferenceID = "provider_ref_id"
)

// Load reads the manifest at path. Relative directories are resolved under
// documentRoot. A directory that cannot be listed yields an item carrying
// the listing error in DirectoryErr, so it fails on its own when reconciled.
func Load(path, documentRoot string) ([]domain.BatchItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open manifest %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, documentRoot)
}

// Read parses a manifest from r.
func Read(r io.Reader, documentRoot string) ([]domain.BatchItem, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.ErrValidation{Field: "manifest", Message: "empty manifest"}
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest header: %w", err)
	}

	dirCol, refCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case ColumnDirectory:
			dirCol = i
		case ColumnReferenceID:
			refCol = i
		}
	}
	if dirCol < 0 {
		return nil, &domain.ErrValidation{Field: ColumnDirectory, Message: "column missing from manifest header"}
	}
	if refCol < 0 {
		return nil, &domain.ErrValidation{Field: ColumnReferenceID, Message: "column missing from manifest header"}
	}

	var items []domain.BatchItem
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		dir := strings.TrimSpace(field(record, dirCol))
		if dir != "" && !filepath.IsAbs(dir) {
			dir = filepath.Join(documentRoot, dir)
		}
		item := domain.BatchItem{
			ReferenceID: strings.TrimSpace(field(record, refCol)),
			Directory:   dir,
		}
		if dir != "" {
			item.DocumentPaths, item.DirectoryErr = ListDocuments(dir)
		}
		items = append(items, item)
	}
	return items, nil
}

// ListDocuments returns the regular files directly inside dir, sorted by
// name, skipping hidden files.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func field(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
