// Package correlate picks the tracker row that belongs to the run that just
// finished.
//
// The tracker appends to its output file, so the most recent row is the best
// guess. When the caller knows the run id and the file has a run_id column,
// rows are filtered first; an empty filter falls back to every row. This is a
// best-effort heuristic: two harnesses writing to one directory at the same
// time can still pick each other's rows.
package correlate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
)

// Table is a parsed tracker file in file order.
type Table struct {
	Header []string
	Rows   []Row
}

// HasColumn reports whether the header names the column.
func (t Table) HasColumn(name string) bool { return slices.Contains(t.Header, name) }

// ReadFile parses a tracker file. A missing file yields an empty table and no
// error.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV with a header line. Ragged rows are accepted: cells
// beyond the header are dropped and missing trailing cells are absent.
func Read(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, err
	}

	t := Table{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return Table{}, err
		}
		row := make(Row, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
}

// Select applies the run id filter (with fallback) and returns the last
// candidate row.
func Select(t Table, runID string) (Row, bool) {
	if len(t.Rows) == 0 {
		return nil, false
	}
	candidates := t.Rows
	if runID != "" && t.HasColumn(RunIDField) {
		var matched []Row
		for _, row := range t.Rows {
			if row.RunID() == runID {
				matched = append(matched, row)
			}
		}
		if len(matched) > 0 {
			candidates = matched
		}
	}
	return candidates[len(candidates)-1], true
}

// Last reads path and returns the row for runID. A missing or empty file
// returns false with a nil error.
func Last(path, runID string) (Row, bool, error) {
	t, err := ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	row, ok := Select(t, runID)
	return row, ok, nil
}
