// Package summary holds the single report aggregate of a run and the
// derived offset metrics computed from it.
//
// Optional numbers are pointers: nil means "not measured" and is omitted
// from every artifact, while a pointer to 0 is a measured zero.
package summary

import (
	"time"

	"github.com/ja7ad/carbonrun/pkg/correlate"
)

// Summary is the combined view of one invocation.
type Summary struct {
	Timestamp time.Time `json:"timestamp"`

	// request
	Task        string `json:"task"`
	Mode        string `json:"mode"`
	Country     string `json:"country,omitempty"`
	Seconds     int    `json:"seconds"`
	IntervalS   int    `json:"interval_s"`
	ProjectName string `json:"project_name"`
	OutputDir   string `json:"output_dir"`
	OutputCSV   string `json:"output_csv"`

	// run record
	RunID       string    `json:"run_id,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	DurationS   float64   `json:"duration_s"`
	Units       int64     `json:"units"`
	Unit        string    `json:"unit,omitempty"`
	EmissionsKg *float64  `json:"emissions_kg,omitempty"`

	// sampled row
	CPUPower       *float64 `json:"cpu_power,omitempty"`
	GPUPower       *float64 `json:"gpu_power,omitempty"`
	RAMPower       *float64 `json:"ram_power,omitempty"`
	CPUEnergy      *float64 `json:"cpu_energy,omitempty"`
	GPUEnergy      *float64 `json:"gpu_energy,omitempty"`
	RAMEnergy      *float64 `json:"ram_energy,omitempty"`
	EnergyConsumed *float64 `json:"energy_consumed,omitempty"`
	Emissions      *float64 `json:"emissions,omitempty"`
	EmissionsRate  *float64 `json:"emissions_rate,omitempty"`
	Duration       *float64 `json:"duration,omitempty"`

	// derived
	TreesNeededPerYearEquiv   *float64 `json:"trees_needed_per_year_equiv,omitempty"`
	HoursCompensatedTreeYoung *float64 `json:"hours_compensated_tree_young,omitempty"`
	HoursCompensatedTreeAdult *float64 `json:"hours_compensated_tree_adult,omitempty"`

	Notes string `json:"notes,omitempty"`
	Error string `json:"error,omitempty"`
}

// SampledFields are the tracker columns copied into a Summary, in report order.
var SampledFields = []string{
	"cpu_power", "gpu_power", "ram_power",
	"cpu_energy", "gpu_energy", "ram_energy",
	"energy_consumed", "emissions", "emissions_rate", "duration",
}

func (s *Summary) sampled(key string) **float64 {
	switch key {
	case "cpu_power":
		return &s.CPUPower
	case "gpu_power":
		return &s.GPUPower
	case "ram_power":
		return &s.RAMPower
	case "cpu_energy":
		return &s.CPUEnergy
	case "gpu_energy":
		return &s.GPUEnergy
	case "ram_energy":
		return &s.RAMEnergy
	case "energy_consumed":
		return &s.EnergyConsumed
	case "emissions":
		return &s.Emissions
	case "emissions_rate":
		return &s.EmissionsRate
	case "duration":
		return &s.Duration
	}
	return nil
}

// Sampled returns the value of a sampled field by column name.
func (s *Summary) Sampled(key string) (float64, bool) {
	p := s.sampled(key)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// ApplyRow copies the well-formed numeric sampled fields of row. Fields the
// row lacks, or carries as empty or non-numeric text, stay absent.
func (s *Summary) ApplyRow(row correlate.Row) {
	if row == nil {
		return
	}
	for _, key := range SampledFields {
		if v, ok := row.Float(key); ok {
			*s.sampled(key) = Float(v)
		}
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
