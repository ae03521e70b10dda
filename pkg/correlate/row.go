package correlate

import (
	"math"
	"strconv"
	"strings"
)

// RunIDField is the column that tags a row with the tracker's run id.
const RunIDField = "run_id"

// Row is one persisted tracker record: column name to raw text.
type Row map[string]string

// Get returns the trimmed raw value and whether it carries data.
// Empty cells and the literal "None" count as absent.
func (r Row) Get(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" || v == "None" {
		return "", false
	}
	return v, true
}

// Float coerces a text cell to a number. Absent, unparsable, NaN and
// infinite values all report false so they can never leak into a report.
func (r Row) Float(key string) (float64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// RunID returns the row's run identifier, empty when untagged.
func (r Row) RunID() string {
	v, _ := r.Get(RunIDField)
	return v
}
