package tracker

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ja7ad/carbonrun/pkg/correlate"
)

// Columns is the header written to a new sample file.
var Columns = []string{
	"timestamp", "project_name", correlate.RunIDField,
	"duration", "emissions", "emissions_rate",
	"cpu_power", "gpu_power", "ram_power", "disk_power",
	"cpu_energy", "gpu_energy", "ram_energy", "disk_energy",
	"energy_consumed",
	"country_name", "country_iso_code", "tracking_mode",
	"cpu_count", "os",
}

// readHeader returns the first record of path, or nil for a missing or empty
// file.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	return header, err
}

// endsWithNewline reports whether path is empty or its last byte is '\n'.
func endsWithNewline(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return false, err
	}
	if st.Size() == 0 {
		return true, nil
	}
	b := make([]byte, 1)
	if _, err := f.ReadAt(b, st.Size()-1); err != nil {
		return false, err
	}
	return b[0] == '\n', nil
}

// appendRow appends row to path. A new or empty file gets Columns as its
// header; otherwise cells follow the existing header and unknown columns
// stay empty.
func appendRow(path string, row correlate.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	header, err := readHeader(path)
	if err != nil {
		return fmt.Errorf("read header %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if header == nil {
		header = Columns
		_ = w.Write(header)
	} else {
		ok, err := endsWithNewline(path)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("read tail %s: %w", path, err)
		}
		if !ok {
			// a writer killed mid-row left the last line open
			if _, err := f.WriteString("\n"); err != nil {
				_ = f.Close()
				return fmt.Errorf("append %s: %w", path, err)
			}
		}
	}
	rec := make([]string, len(header))
	for i, name := range header {
		rec[i] = row[name]
	}
	_ = w.Write(rec)
	w.Flush()

	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}
