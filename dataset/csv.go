package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// CSVDecoder decodes comma-separated files. The first record is the header;
// header cells that are empty after trimming, or duplicates of an earlier
// cell, are dropped along with their column.
type CSVDecoder struct {
	// Comma overrides the field separator when non-zero.
	Comma rune
}

func (d CSVDecoder) Decode(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if d.Comma != 0 {
		r.Comma = d.Comma
	}
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read dataset: %w", err)
	}
	if len(records) == 0 {
		return Table{}, ErrEmptySheet
	}

	header := records[0]
	columns := make([]string, 0, len(header))
	indexes := make([]int, 0, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		columns = append(columns, name)
		indexes = append(indexes, i)
	}
	if len(columns) == 0 {
		return Table{}, fmt.Errorf("dataset header has no usable columns")
	}

	var rows []Row
	for _, record := range records[1:] {
		row := make(Row, len(columns))
		empty := true
		for j, col := range columns {
			idx := indexes[j]
			if idx >= len(record) {
				continue
			}
			v := strings.TrimSpace(record[idx])
			row[col] = v
			if v != "" {
				empty = false
			}
		}
		// Rows where every value is empty carry no work; drop them.
		if empty {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return Table{}, ErrEmptySheet
	}
	return Table{Columns: columns, Rows: rows}, nil
}
