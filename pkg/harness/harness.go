// Package harness runs one workload under an emissions tracker and turns
// what the tracker recorded into a summary with derived offset metrics.
//
// A run moves through idle, tracking, stopped, correlated and reported.
// The tracker is always stopped once started, whatever the workload does.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ja7ad/carbonrun/pkg/consumption"
	"github.com/ja7ad/carbonrun/pkg/correlate"
	"github.com/ja7ad/carbonrun/pkg/report"
	"github.com/ja7ad/carbonrun/pkg/summary"
	"github.com/ja7ad/carbonrun/pkg/system/util"
	"github.com/ja7ad/carbonrun/pkg/tracker"
	"github.com/ja7ad/carbonrun/pkg/workload"
)

// Notes is stamped on every summary.
const Notes = "Measured with carbonrun"

// DurationPrecision is the number of decimals kept for duration_s.
const DurationPrecision = 3

type State string

const (
	StateIdle       State = "idle"
	StateTracking   State = "tracking"
	StateStopped    State = "stopped"
	StateCorrelated State = "correlated"
	StateReported   State = "reported"
)

// TrackerFactory builds the tracker for a run.
type TrackerFactory func(ctx context.Context, cfg tracker.Config) (tracker.Tracker, error)

type Options struct {
	NewTracker TrackerFactory   // default tracker.New
	Workload   workload.Func    // overrides the task's workload
	Workloads  workload.Options // sizes for the built-in workloads
	Power      consumption.Config
	Smoothing  float64
	GeoURL     string
	HTML       bool
	Logger     *slog.Logger
	Now        func() time.Time
}

// Result is everything a run produced.
type Result struct {
	Record    Record
	Row       correlate.Row // nil when no row was found
	Summary   *summary.Summary
	Artifacts report.Artifacts
}

func newEmissionsTracker(ctx context.Context, cfg tracker.Config) (tracker.Tracker, error) {
	t, err := tracker.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Run executes req. Tracker build and start failures return before any
// artifact is written. A workload failure is recorded in the summary, the
// artifacts are still written, and the returned error wraps ErrWorkload.
func Run(ctx context.Context, req Request, o Options) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}
	now := o.Now
	if now == nil {
		now = time.Now
	}
	newTracker := o.NewTracker
	if newTracker == nil {
		newTracker = newEmissionsTracker
	}

	fn := o.Workload
	if fn == nil {
		var err error
		if fn, err = workload.Lookup(req.Task, o.Workloads); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	tcfg := tracker.DefaultConfig()
	tcfg.ProjectName = req.Project
	tcfg.OutputDir = req.OutputDir
	tcfg.Interval = req.IntervalDuration()
	tcfg.Mode = req.Mode
	tcfg.CountryISO = req.Country
	tcfg.Logger = log
	if o.Power != (consumption.Config{}) {
		tcfg.Power = o.Power
	}
	if o.Smoothing > 0 {
		tcfg.Smoothing = o.Smoothing
	}
	if o.GeoURL != "" {
		tcfg.GeoURL = o.GeoURL
	}

	state := func(s State) { log.Debug("run state", "state", s) }
	state(StateIdle)

	tr, err := newTracker(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("build tracker: %w", err)
	}
	if err := tr.Start(); err != nil {
		return nil, fmt.Errorf("start tracker: %w", err)
	}
	state(StateTracking)

	rec := Record{RunID: tr.RunID(), StartedAt: now()}
	log.Info("measuring", "task", req.Task, "mode", req.Mode, "seconds", req.Seconds, "run_id", rec.RunID)

	units, kg, werr := execute(ctx, tr, fn, req, log)
	rec.EndedAt = now()
	rec.Units, rec.EmissionsKg = units, kg
	state(StateStopped)
	if werr != nil {
		log.Error("workload failed", "task", req.Task, "err", werr)
	}

	csvPath := filepath.Join(req.OutputDir, tracker.DefaultOutputFile)
	row, ok, err := correlate.Last(csvPath, rec.RunID)
	if err != nil {
		log.Warn("could not read tracker output", "path", csvPath, "err", err)
	} else if !ok {
		log.Warn("no tracker row found", "path", csvPath)
	}
	state(StateCorrelated)

	s := buildSummary(req, rec, csvPath, now())
	s.ApplyRow(row)
	if werr != nil {
		s.Error = werr.Error()
	}
	summary.Derive(s)

	res := &Result{Record: rec, Row: row, Summary: s}
	res.Artifacts, err = report.Write(req.OutputDir, s, report.Options{HTML: o.HTML})
	if err == nil {
		state(StateReported)
	}

	var errs []error
	if err != nil {
		errs = append(errs, fmt.Errorf("write report: %w", err))
	}
	if werr != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrWorkload, werr))
	}
	return res, errors.Join(errs...)
}

// execute runs the workload and always stops the tracker, converting a
// workload panic into an error. A stop error is logged but a value measured
// alongside it is kept. Non-finite values are treated as absent.
func execute(ctx context.Context, tr tracker.Tracker, fn workload.Func, req Request, log *slog.Logger) (units int64, kg *float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		v, stopErr := tr.Stop()
		if stopErr != nil {
			log.Error("tracker stop failed", "err", stopErr, "emissions_measured", v != nil)
		}
		switch {
		case v == nil:
		case !util.Finite(*v):
			log.Warn("tracker returned non-finite emissions, treating as absent", "value", *v)
		default:
			kg = v
		}
	}()

	units, err = fn(ctx, req.Duration(), req.OutputDir)
	return units, nil, err
}

func buildSummary(req Request, rec Record, csvPath string, at time.Time) *summary.Summary {
	s := &summary.Summary{
		Timestamp:   at.UTC(),
		Task:        req.Task.String(),
		Mode:        string(req.Mode),
		Seconds:     req.Seconds,
		IntervalS:   req.Interval,
		ProjectName: req.Project,
		OutputDir:   req.OutputDir,
		OutputCSV:   csvPath,
		RunID:       rec.RunID,
		StartedAt:   rec.StartedAt.UTC(),
		EndedAt:     rec.EndedAt.UTC(),
		DurationS:   util.Round(rec.Duration(), DurationPrecision),
		Units:       rec.Units,
		Unit:        req.Task.Unit(),
		EmissionsKg: rec.EmissionsKg,
		Notes:       Notes,
	}
	if req.Mode == tracker.Offline {
		s.Country = req.Country
	}
	return s
}
