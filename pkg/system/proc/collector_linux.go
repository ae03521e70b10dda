//go:build linux

package proc

import (
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/ja7ad/carbonrun/pkg/system/util"
	"github.com/ja7ad/carbonrun/pkg/types"
)

// selfCollector samples the calling process.
//   - machine CPU: /proc/stat jiffies
//   - process CPU: getrusage(RUSAGE_SELF), microsecond resolution
//   - I/O: /proc/self/io
//   - RAM proxies: rusage minor faults, /proc/self/statm RSS
type selfCollector struct {
	pageSize int
	nproc    int
	ema      *util.EMA // nil when smoothing is off

	vmActivePrev uint64
	vmTotalPrev  uint64
	cpuNsPrev    int64
	minfltPrev   uint64
	rbytesPrev   uint64
	wbytesPrev   uint64
	rssPrev      uint64
}

// NewSelfCollector seeds every counter so the first Sample covers the time
// since construction. alpha in (0,1] enables EMA smoothing of UVm.
func NewSelfCollector(alpha float64) (Collector, error) {
	c := &selfCollector{
		pageSize: PageSize(),
		nproc:    runtime.NumCPU(),
	}
	if alpha > 0 {
		c.ema = util.NewEMA(alpha)
	}

	active, total, err := ReadSystemCPU()
	if err != nil {
		return nil, err
	}
	c.vmActivePrev, c.vmTotalPrev = active, total

	cpuNs, minflt, err := selfRusage()
	if err != nil {
		return nil, err
	}
	c.cpuNsPrev, c.minfltPrev = cpuNs, minflt

	// best effort, missing files leave the baseline at zero
	c.rbytesPrev, c.wbytesPrev, _ = ReadSelfIO()
	c.rssPrev, _ = ReadSelfRSS()
	return c, nil
}

func (c *selfCollector) Close() error { return nil }

func (c *selfCollector) Sample(dtSec float64) (Snapshot, error) {
	if !(dtSec > 0) {
		return Snapshot{}, ErrBadDt
	}

	active, total, err := ReadSystemCPU()
	if err != nil {
		return Snapshot{}, err
	}
	uvm := util.SafeDiv(
		float64(util.DeltaU64(active, c.vmActivePrev)),
		float64(util.DeltaU64(total, c.vmTotalPrev)),
	)
	c.vmActivePrev, c.vmTotalPrev = active, total
	if c.ema != nil {
		uvm = c.ema.Next(uvm)
	}

	cpuNs, minflt, err := selfRusage()
	if err != nil {
		return Snapshot{}, err
	}
	var cpuSec float64
	if cpuNs > c.cpuNsPrev {
		cpuSec = float64(cpuNs-c.cpuNsPrev) / 1e9
	}
	dMinflt := util.DeltaU64(minflt, c.minfltPrev)
	c.cpuNsPrev, c.minfltPrev = cpuNs, minflt
	uproc := util.SafeDiv(cpuSec, float64(c.nproc)*dtSec)

	var readDelta, writeDelta uint64
	if r, w, err := ReadSelfIO(); err == nil {
		readDelta = util.DeltaU64(r, c.rbytesPrev)
		writeDelta = util.DeltaU64(w, c.wbytesPrev)
		c.rbytesPrev, c.wbytesPrev = r, w
	}

	var churn uint64
	if rss, err := ReadSelfRSS(); err == nil {
		if rss >= c.rssPrev {
			churn = rss - c.rssPrev
		} else {
			churn = c.rssPrev - rss
		}
		c.rssPrev = rss
	}

	return Snapshot{
		TimeSec:       dtSec,
		UVm:           util.Clamp01(uvm),
		UProc:         util.Clamp01(uproc),
		ReadBytes:     types.ToBytes(readDelta),
		WriteBytes:    types.ToBytes(writeDelta),
		RefaultBytes:  types.ToBytes(dMinflt * uint64(c.pageSize)),
		RSSChurnBytes: types.ToBytes(churn),
	}, nil
}

// selfRusage returns user+system CPU time in nanoseconds and minor faults.
func selfRusage() (cpuNs int64, minflt uint64, err error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, 0, err
	}
	cpuNs = unix.TimevalToNsec(ru.Utime) + unix.TimevalToNsec(ru.Stime)
	if ru.Minflt > 0 {
		minflt = uint64(ru.Minflt)
	}
	return cpuNs, minflt, nil
}
