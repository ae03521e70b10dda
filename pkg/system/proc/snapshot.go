// Package proc samples the resource usage of the current process so it can be
// fed to the power model in pkg/consumption.
//
// A Collector is created once, seeded with the current counters, and then
// asked for a Snapshot per sampling window:
//
//	col, err := proc.NewSelfCollector(0.5) // EMA alpha on machine utilization
//	if err != nil { ... }
//	defer col.Close()
//	snap, err := col.Sample(1.0) // seconds since the previous call
//
// Utilization definitions:
//
//	UVm   = Δ active jiffies / Δ total jiffies        (/proc/stat)
//	UProc = Δ process CPU seconds / (NumCPU * dt)    (getrusage)
//
// Both are clamped to [0,1]. RAM proxies are minor faults × page size and the
// absolute RSS delta. I/O comes from /proc/self/io and is zero when the file
// is not readable (some containers hide it).
//
// Only Linux has a backend; elsewhere NewSelfCollector returns ErrUnsupported.
package proc

import "github.com/ja7ad/carbonrun/pkg/types"

// Snapshot is the resource usage over one sampling window.
type Snapshot struct {
	TimeSec float64
	// Utilizations in [0,1]
	UVm   float64
	UProc float64
	// Byte deltas for this window
	ReadBytes  types.Bytes
	WriteBytes types.Bytes
	// RAM proxies (bytes)
	RefaultBytes  types.Bytes // minor faults * page size
	RSSChurnBytes types.Bytes
}

// Collector produces one Snapshot per call covering the time since the
// previous call (or since construction for the first one).
type Collector interface {
	Sample(dtSec float64) (Snapshot, error)
	Close() error
}
