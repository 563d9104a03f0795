// Package dataset loads dataset items from CSV and JSON Lines files. Items
// keep their file order; an item's identity is its index.
package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spboyer/gauntlet/internal/models"
)

// Load picks the loader from the file extension: .csv, .jsonl or .ndjson.
func Load(path string) ([]models.DatasetItem, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return LoadCSV(path)
	case ".jsonl", ".ndjson":
		return LoadJSONL(path)
	default:
		return nil, fmt.Errorf("dataset: unsupported file extension %q (want .csv, .jsonl or .ndjson)", ext)
	}
}

// LoadCSV reads a CSV file into dataset items. The first row is treated as
// headers (field names); every value is a string.
func LoadCSV(path string) ([]models.DatasetItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	headers := records[0]
	items := make([]models.DatasetItem, 0, len(records)-1)

	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("csv: row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		item := make(models.DatasetItem, len(headers))
		for j, h := range headers {
			item[h] = record[j]
		}
		items = append(items, item)
	}

	return items, nil
}

// LoadJSONL reads a JSON Lines file: one JSON object per line, blank lines
// skipped. Values keep their JSON types.
func LoadJSONL(path string) ([]models.DatasetItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jsonl: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	var items []models.DatasetItem
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item models.DatasetItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("jsonl: %s line %d: %w", path, lineNum, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl: read %s: %w", path, err)
	}

	return items, nil
}
