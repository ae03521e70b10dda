package consumption

import (
	"math"

	"github.com/ja7ad/carbonrun/pkg/system/proc"
	"github.com/ja7ad/carbonrun/pkg/system/util"
)

// Accumulator keeps running energy per component and average power.
// It is not safe for concurrent use; the tracker serializes access.
type Accumulator struct {
	cfg     Config
	energy  Energy
	elapsed float64
	count   int
}

// New creates an accumulator with the given config.
// Notes:
//   - PIdle/PMax/Gamma/ER/EW must be > 0 to override defaults.
//   - EMemRef/EMemRSS: zero is an intentional "disable", negative means unset.
//   - Alpha outside [0..1] is ignored.
//   - PMax below PIdle is raised to PIdle.
func New(cfg Config) *Accumulator {
	merged := DefaultConfig()

	if cfg.PIdle > 0 {
		merged.PIdle = cfg.PIdle
	}
	if cfg.PMax > 0 {
		merged.PMax = cfg.PMax
	}
	if cfg.Gamma > 0 {
		merged.Gamma = cfg.Gamma
	}
	if cfg.ER > 0 {
		merged.ER = cfg.ER
	}
	if cfg.EW > 0 {
		merged.EW = cfg.EW
	}
	if cfg.EMemRef >= 0 {
		merged.EMemRef = cfg.EMemRef
	}
	if cfg.EMemRSS >= 0 {
		merged.EMemRSS = cfg.EMemRSS
	}
	if cfg.Alpha >= 0 && cfg.Alpha <= 1 {
		merged.Alpha = cfg.Alpha
	}
	if merged.PMax < merged.PIdle {
		merged.PMax = merged.PIdle
	}

	return &Accumulator{cfg: merged}
}

// Config returns the effective coefficients after merging with defaults.
func (a *Accumulator) Config() Config { return a.cfg }

// Model computes the power split for one snapshot without accumulating it.
func (a *Accumulator) Model(snap proc.Snapshot) Result {
	uvm := util.Clamp01(snap.UVm)
	up := util.Clamp01(snap.UProc)

	// dynamic CPU power at machine level, attributed by the process share
	var pcpu float64
	if uvm > 1e-12 {
		share := util.Clamp01(up / uvm)
		pcpu = share * (a.cfg.PMax - a.cfg.PIdle) * util.Pow(uvm, a.cfg.Gamma)
		if a.cfg.Alpha > 0 {
			pcpu += a.cfg.Alpha * a.cfg.PIdle * share
		}
	}

	dt := math.Max(snap.TimeSec, 1e-6)
	edisk := a.cfg.ER*float64(snap.ReadBytes) + a.cfg.EW*float64(snap.WriteBytes)
	eram := a.cfg.EMemRef*float64(snap.RefaultBytes) + a.cfg.EMemRSS*float64(snap.RSSChurnBytes)

	r := Result{PCPU: pcpu, PDisk: edisk / dt, PRAM: eram / dt}
	r.PTotal = r.PCPU + r.PDisk + r.PRAM
	return r
}

// Apply runs the model on one snapshot and folds it into the totals:
//
//	E_component += P_component * dt
func (a *Accumulator) Apply(snap proc.Snapshot) Result {
	r := a.Model(snap)
	dt := math.Max(snap.TimeSec, 1e-6)

	a.energy.CPUJ += r.PCPU * dt
	a.energy.DiskJ += r.PDisk * dt
	a.energy.RAMJ += r.PRAM * dt
	a.elapsed += dt
	a.count++
	return r
}

// Samples returns how many snapshots were applied.
func (a *Accumulator) Samples() int { return a.count }

// Energy returns the accumulated energy per component.
func (a *Accumulator) Energy() Energy { return a.energy }

// EnergyCumJ returns cumulative energy in Joules.
func (a *Accumulator) EnergyCumJ() float64 { return a.energy.TotalJ() }

// Averages returns time-weighted average power over all applied samples,
// so a short tail window does not count as much as a full tick.
func (a *Accumulator) Averages() Result {
	if a.count == 0 || a.elapsed <= 0 {
		return Result{}
	}
	e := a.energy
	return Result{
		PCPU:   e.CPUJ / a.elapsed,
		PDisk:  e.DiskJ / a.elapsed,
		PRAM:   e.RAMJ / a.elapsed,
		PTotal: e.TotalJ() / a.elapsed,
	}
}
