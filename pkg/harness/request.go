package harness

import (
	"errors"
	"fmt"
	"time"

	"github.com/ja7ad/carbonrun/pkg/tracker"
	"github.com/ja7ad/carbonrun/pkg/workload"
)

var (
	ErrInvalidRequest = errors.New("harness: invalid request")
	ErrWorkload       = errors.New("harness: workload failed")
)

// Request is one measurement run as asked for by the operator.
type Request struct {
	Task      workload.Kind
	Seconds   int
	Mode      tracker.Mode
	Country   string // ISO-3, offline only
	Project   string
	OutputDir string
	Interval  int // seconds
}

// Validate checks enumerations and positivity. A country in online mode is
// ignored, not rejected.
func (r Request) Validate() error {
	var errs []error
	if !r.Task.Valid() {
		errs = append(errs, fmt.Errorf("task %q (want cpu, io or baseline)", string(r.Task)))
	}
	switch r.Mode {
	case tracker.Offline:
		if r.Country == "" {
			errs = append(errs, errors.New("country is required in offline mode"))
		}
	case tracker.Online:
	default:
		errs = append(errs, fmt.Errorf("mode %q (want offline or online)", string(r.Mode)))
	}
	if r.Seconds <= 0 {
		errs = append(errs, fmt.Errorf("seconds must be > 0, got %d", r.Seconds))
	}
	if r.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be > 0, got %d", r.Interval))
	}
	if r.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, errors.Join(errs...))
	}
	return nil
}

func (r Request) Duration() time.Duration { return time.Duration(r.Seconds) * time.Second }

func (r Request) IntervalDuration() time.Duration {
	return time.Duration(r.Interval) * time.Second
}

// Record is what the run itself observed.
type Record struct {
	RunID       string
	StartedAt   time.Time
	EndedAt     time.Time
	EmissionsKg *float64
	Units       int64
}

// Duration is the wall time between start and end in seconds.
func (r Record) Duration() float64 { return r.EndedAt.Sub(r.StartedAt).Seconds() }
