// Package registry loads the spreadsheet-based task registry. The registry
// is a CSV export with a header row: id, name, hours, tags (tags
// semicolon-separated, optional).
package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"opsboard/api/internal/store"
)

// Parse reads registry tasks from CSV. Rows with a blank id are skipped;
// a malformed hours value is an error because silently zeroing expected
// hours would fabricate discrepancies downstream.
func Parse(r io.Reader) ([]store.RegistryTask, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read registry csv: %w", err)
	}
	if len(records) == 0 {
		return []store.RegistryTask{}, nil
	}

	start := 0
	if isHeader(records[0]) {
		start = 1
	}

	tasks := make([]store.RegistryTask, 0, len(records))
	for i, record := range records[start:] {
		if len(record) < 2 {
			continue
		}
		id := strings.TrimSpace(record[0])
		if id == "" {
			continue
		}
		task := store.RegistryTask{
			ID:   id,
			Name: strings.TrimSpace(record[1]),
		}
		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			hours, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("registry row %d: bad hours %q: %w", start+i+1, record[2], err)
			}
			task.Hours = hours
		}
		if len(record) > 3 {
			for _, tag := range strings.Split(record[3], ";") {
				if t := strings.TrimSpace(tag); t != "" {
					task.Tags = append(task.Tags, t)
				}
			}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "id")
}
