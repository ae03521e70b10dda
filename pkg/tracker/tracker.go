// Package tracker estimates the energy and carbon emissions of the current
// process while it runs.
//
// An EmissionsTracker samples the process in the background at a fixed
// interval, folds every sample into the power model from pkg/consumption,
// and on Stop converts the accumulated energy to kg CO2eq with the grid
// intensity of the configured (offline) or located (online) country. One row
// per run is appended to <OutputDir>/emissions.csv.
//
//	t, err := tracker.New(ctx, cfg)
//	if err != nil { ... }
//	if err := t.Start(); err != nil { ... }
//	// work
//	kg, err := t.Stop() // nil kg: nothing was measured
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ja7ad/carbonrun/pkg/consumption"
	"github.com/ja7ad/carbonrun/pkg/correlate"
	"github.com/ja7ad/carbonrun/pkg/emissions"
	"github.com/ja7ad/carbonrun/pkg/system/proc"
	"github.com/ja7ad/carbonrun/pkg/system/util"
)

// Tracker is the capability the harness drives: one Start, one Stop.
type Tracker interface {
	Start() error
	// Stop ends tracking and returns the emissions in kg CO2eq, or nil when
	// nothing was measured.
	Stop() (*float64, error)
	// RunID identifies the row written for this run; empty before Start.
	RunID() string
}

// Mode selects how the grid intensity is found.
type Mode string

const (
	Offline Mode = "offline"
	Online  Mode = "online"
)

// ParseMode parses a tracking mode case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case Offline, Online:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (want offline or online)", ErrBadMode, s)
}

const (
	DefaultOutputFile = "emissions.csv"
	DefaultInterval   = time.Second
	DefaultSmoothing  = 0.5
	DefaultGeoTimeout = 5 * time.Second
)

// CollectorFunc opens a sampler; alpha is the EMA factor for machine
// utilization.
type CollectorFunc func(alpha float64) (proc.Collector, error)

type Config struct {
	ProjectName string
	OutputDir   string
	OutputFile  string // default emissions.csv
	SaveToFile  bool
	Interval    time.Duration

	Mode       Mode
	CountryISO string // offline only

	Power     consumption.Config // zero value means defaults
	Smoothing float64            // EMA alpha, 0 disables

	GeoURL     string
	GeoTimeout time.Duration
	HTTPClient *http.Client

	Logger       *slog.Logger
	NewCollector CollectorFunc // default proc.NewSelfCollector
}

// DefaultConfig returns a config that saves to ./emissions.csv in offline
// mode; CountryISO still has to be set.
func DefaultConfig() Config {
	return Config{
		OutputDir:  ".",
		OutputFile: DefaultOutputFile,
		SaveToFile: true,
		Interval:   DefaultInterval,
		Mode:       Offline,
		Power:      consumption.DefaultConfig(),
		Smoothing:  DefaultSmoothing,
		GeoURL:     emissions.DefaultGeoURL,
		GeoTimeout: DefaultGeoTimeout,
	}
}

// EmissionsTracker is the process-level Tracker.
type EmissionsTracker struct {
	cfg       Config
	log       *slog.Logger
	intensity emissions.Intensity

	mu        sync.Mutex
	acc       *consumption.Accumulator
	col       proc.Collector
	runID     string
	startedAt time.Time
	lastTick  time.Time
	running   bool
	done      bool
	cancel    context.CancelFunc
	group     *errgroup.Group
	lastRow   correlate.Row
}

var _ Tracker = (*EmissionsTracker)(nil)

// New validates cfg and resolves the grid intensity. Offline mode fails on
// an unknown country; online mode falls back to the world average.
func New(ctx context.Context, cfg Config) (*EmissionsTracker, error) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.OutputFile == "" {
		cfg.OutputFile = DefaultOutputFile
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Power == (consumption.Config{}) {
		cfg.Power = consumption.DefaultConfig()
	}
	if cfg.GeoURL == "" {
		cfg.GeoURL = emissions.DefaultGeoURL
	}
	if cfg.GeoTimeout <= 0 {
		cfg.GeoTimeout = DefaultGeoTimeout
	}
	if cfg.NewCollector == nil {
		cfg.NewCollector = proc.NewSelfCollector
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	t := &EmissionsTracker{cfg: cfg, log: log.With("component", "tracker")}

	switch cfg.Mode {
	case Offline, "":
		t.cfg.Mode = Offline
		in, err := emissions.Lookup(cfg.CountryISO)
		if err != nil {
			return nil, err
		}
		t.intensity = in
	case Online:
		gctx, cancel := context.WithTimeout(ctx, cfg.GeoTimeout)
		t.intensity = emissions.Resolve(gctx, cfg.HTTPClient, cfg.GeoURL, t.log)
		cancel()
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadMode, string(cfg.Mode))
	}

	t.log.Debug("intensity resolved",
		"country", t.intensity.Country, "iso", t.intensity.ISO3,
		"g_per_kwh", t.intensity.GPerKWh, "estimated", t.intensity.Estimated)
	return t, nil
}

// Intensity returns the grid intensity used for this tracker.
func (t *EmissionsTracker) Intensity() emissions.Intensity { return t.intensity }

// OutputPath is the sample file rows are appended to.
func (t *EmissionsTracker) OutputPath() string {
	return filepath.Join(t.cfg.OutputDir, t.cfg.OutputFile)
}

func (t *EmissionsTracker) RunID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runID
}

// LastRow returns the row written (or that would have been written) by the
// last Stop, nil before that.
func (t *EmissionsTracker) LastRow() correlate.Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRow
}

// Start opens the collector and launches the sampler. A tracker runs once.
func (t *EmissionsTracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || t.done {
		return ErrAlreadyStarted
	}

	col, err := t.cfg.NewCollector(t.cfg.Smoothing)
	if err != nil {
		return fmt.Errorf("tracker: open collector: %w", err)
	}

	t.col = col
	t.acc = consumption.New(t.cfg.Power)
	t.runID = uuid.NewString()
	t.startedAt = time.Now()
	t.lastTick = t.startedAt

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tk := time.NewTicker(t.cfg.Interval)
		defer tk.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-tk.C:
				t.mu.Lock()
				t.sampleLocked(now)
				t.mu.Unlock()
			}
		}
	})
	t.cancel, t.group, t.running = cancel, g, true

	t.log.Debug("tracking started", "run_id", t.runID, "interval", t.cfg.Interval)
	return nil
}

// sampleLocked folds the window ending at now into the accumulator. Sample
// errors are logged and the window is skipped.
func (t *EmissionsTracker) sampleLocked(now time.Time) {
	dt := now.Sub(t.lastTick).Seconds()
	if dt <= 0 {
		return
	}
	t.lastTick = now

	snap, err := t.col.Sample(dt)
	if err != nil {
		t.log.Warn("sample error", "err", err)
		return
	}
	r := t.acc.Apply(snap)
	t.log.Debug("sample",
		"u_vm", snap.UVm, "u_proc", snap.UProc,
		"p_total_w", r.PTotal, "e_cum_j", t.acc.EnergyCumJ())
}

// Stop joins the sampler, takes a tail sample up to now and appends the run
// row. Emissions are nil when no sample succeeded; then no row is written.
func (t *EmissionsTracker) Stop() (*float64, error) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil, ErrNotStarted
	}
	t.running, t.done = false, true
	cancel, g := t.cancel, t.group
	t.mu.Unlock()

	cancel()
	_ = g.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.sampleLocked(now)
	if err := t.col.Close(); err != nil {
		t.log.Warn("close collector", "err", err)
	}

	if t.acc.Samples() == 0 {
		t.log.Warn("no samples collected", "run_id", t.runID)
		return nil, nil
	}

	energy := t.acc.Energy()
	kg := t.intensity.Emissions(energy.TotalKWh())
	duration := now.Sub(t.startedAt).Seconds()
	t.lastRow = t.row(now, duration, kg, energy)

	t.log.Debug("tracking stopped",
		"run_id", t.runID, "samples", t.acc.Samples(),
		"energy_j", energy.TotalJ(), "emissions_kg", kg)

	if t.cfg.SaveToFile {
		if err := appendRow(t.OutputPath(), t.lastRow); err != nil {
			return &kg, fmt.Errorf("tracker: save: %w", err)
		}
	}
	return &kg, nil
}

func (t *EmissionsTracker) row(now time.Time, duration, kg float64, e consumption.Energy) correlate.Row {
	avg := t.acc.Averages()
	f := util.FmtFloat
	return correlate.Row{
		"timestamp":          now.Format("2006-01-02T15:04:05"),
		"project_name":       t.cfg.ProjectName,
		correlate.RunIDField: t.runID,
		"duration":           f(duration),
		"emissions":          f(kg),
		"emissions_rate":     f(util.SafeDiv(kg, duration)),
		"cpu_power":          f(avg.PCPU),
		"ram_power":          f(avg.PRAM),
		"disk_power":         f(avg.PDisk),
		"cpu_energy":         f(e.CPUKWh()),
		"ram_energy":         f(e.RAMKWh()),
		"disk_energy":        f(e.DiskKWh()),
		"energy_consumed":    f(e.TotalKWh()),
		"country_name":       t.intensity.Country,
		"country_iso_code":   t.intensity.ISO3,
		"tracking_mode":      string(t.cfg.Mode),
		"cpu_count":          strconv.Itoa(runtime.NumCPU()),
		"os":                 runtime.GOOS + "-" + runtime.GOARCH,
	}
}
