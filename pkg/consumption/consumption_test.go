package consumption

import (
	"fmt"
	"math"
	"testing"

	"github.com/ja7ad/carbonrun/pkg/system/proc"
	"github.com/ja7ad/carbonrun/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expect(cfg Config, s proc.Snapshot) (pcpu, pdisk, pram float64) {
	uvm := math.Min(math.Max(s.UVm, 0), 1)
	up := math.Min(math.Max(s.UProc, 0), 1)

	if uvm > 1e-12 {
		share := math.Min(up/uvm, 1)
		pcpu = share * (cfg.PMax - cfg.PIdle) * math.Pow(uvm, cfg.Gamma)
		pcpu += cfg.Alpha * cfg.PIdle * share
	}

	dt := math.Max(s.TimeSec, 1e-6)
	pdisk = (cfg.ER*float64(s.ReadBytes) + cfg.EW*float64(s.WriteBytes)) / dt
	pram = (cfg.EMemRef*float64(s.RefaultBytes) + cfg.EMemRSS*float64(s.RSSChurnBytes)) / dt
	return
}

func TestNew_MergesDefaults(t *testing.T) {
	acc := New(Config{PMax: 40, EMemRef: -1, EMemRSS: 0, Alpha: 2})
	cfg := acc.Config()
	def := DefaultConfig()

	assert.Equal(t, def.PIdle, cfg.PIdle)
	assert.Equal(t, 40.0, cfg.PMax)
	assert.Equal(t, def.EMemRef, cfg.EMemRef, "negative means unset")
	assert.Equal(t, 0.0, cfg.EMemRSS, "zero disables")
	assert.Equal(t, def.Alpha, cfg.Alpha, "alpha out of range ignored")

	acc = New(Config{PIdle: 30, PMax: 10})
	assert.Equal(t, 30.0, acc.Config().PMax, "PMax raised to PIdle")
}

func TestAccumulator_Sequence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alpha = 0.1
	acc := New(cfg)

	const MB = 1 << 20
	snaps := []proc.Snapshot{
		{TimeSec: 1.0, UVm: 0.10, UProc: 0.05, ReadBytes: 1 * MB, RefaultBytes: 64 * 1024, RSSChurnBytes: 128 * 1024},
		{TimeSec: 1.0, UVm: 0.25, UProc: 0.12, ReadBytes: 2 * MB, WriteBytes: 1 * MB, RefaultBytes: 256 * 1024},
		{TimeSec: 0.5, UVm: 0.50, UProc: 0.25, ReadBytes: 4 * MB, WriteBytes: 2 * MB, RSSChurnBytes: 1 * MB},
		{TimeSec: 1.0, UVm: 0.80, UProc: 0.40, WriteBytes: 4 * MB, RefaultBytes: 1 * MB, RSSChurnBytes: 2 * MB},
	}

	var want Energy
	var elapsed float64
	for i, s := range snaps {
		res := acc.Apply(s)
		pcpu, pdisk, pram := expect(acc.Config(), s)
		require.InDelta(t, pcpu, res.PCPU, 1e-9, "pcpu mismatch at tick %d", i)
		require.InDelta(t, pdisk, res.PDisk, 1e-9, "pdisk mismatch at tick %d", i)
		require.InDelta(t, pram, res.PRAM, 1e-9, "pram mismatch at tick %d", i)
		require.InDelta(t, pcpu+pdisk+pram, res.PTotal, 1e-9)

		want.CPUJ += pcpu * s.TimeSec
		want.DiskJ += pdisk * s.TimeSec
		want.RAMJ += pram * s.TimeSec
		elapsed += s.TimeSec

		t.Logf("%d: U_vm=%.2f U_proc=%.2f -> P(cpu)=%.4f P(disk)=%.4f P(ram)=%.4f E=%.4fJ",
			i+1, s.UVm, s.UProc, res.PCPU, res.PDisk, res.PRAM, acc.EnergyCumJ())
	}

	got := acc.Energy()
	assert.InDelta(t, want.CPUJ, got.CPUJ, 1e-9)
	assert.InDelta(t, want.DiskJ, got.DiskJ, 1e-9)
	assert.InDelta(t, want.RAMJ, got.RAMJ, 1e-9)
	assert.InDelta(t, want.TotalJ(), acc.EnergyCumJ(), 1e-9)
	assert.Equal(t, len(snaps), acc.Samples())

	avg := acc.Averages()
	assert.InDelta(t, want.TotalJ()/elapsed, avg.PTotal, 1e-12)
	assert.InDelta(t, want.CPUJ/elapsed, avg.PCPU, 1e-12)
}

func TestAccumulator_ZeroAndClampPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alpha = 0.2
	acc := New(cfg)

	// U_vm=0: no CPU allocation, only disk contributes
	res := acc.Apply(proc.Snapshot{TimeSec: 1, UVm: 0, UProc: 0.9, ReadBytes: 2_000_000, WriteBytes: 1_000_000})
	assert.Zero(t, res.PCPU)
	assert.Greater(t, res.PDisk, 0.0)

	// process share above machine share is capped at the whole dynamic power
	res = acc.Apply(proc.Snapshot{TimeSec: 1, UVm: 0.2, UProc: 0.6})
	full := (cfg.PMax-cfg.PIdle)*math.Pow(0.2, cfg.Gamma) + cfg.Alpha*cfg.PIdle
	assert.InDelta(t, full, res.PCPU, 1e-9)

	// clamp UProc<0 and U_vm>1
	res = acc.Apply(proc.Snapshot{TimeSec: 1, UVm: 1.5, UProc: -0.5})
	assert.Zero(t, res.PCPU)
}

func TestAccumulator_Empty(t *testing.T) {
	acc := New(DefaultConfig())
	assert.Equal(t, Result{}, acc.Averages())
	assert.Zero(t, acc.EnergyCumJ())
	assert.Zero(t, acc.Samples())
}

func TestEnergy_KWh(t *testing.T) {
	e := Energy{CPUJ: 3.6e6, DiskJ: 1.8e6, RAMJ: 0}
	assert.InDelta(t, 1.0, e.CPUKWh(), 1e-12)
	assert.InDelta(t, 0.5, e.DiskKWh(), 1e-12)
	assert.InDelta(t, 1.5, e.TotalKWh(), 1e-12)
	assert.Zero(t, e.RAMKWh())
}

func TestAccumulator_ManyTicks(t *testing.T) {
	acc := New(DefaultConfig())
	for i := 0; i < 20; i++ {
		acc.Apply(proc.Snapshot{
			TimeSec: 1.0, UVm: 0.3 + 0.02*float64(i%5), UProc: 0.1 + 0.01*float64(i%3),
			ReadBytes: types.ToBytes(uint64(200_000 * (1 + i%4))), WriteBytes: types.ToBytes(uint64(100_000 * (1 + i%3))),
		})
	}
	avg := acc.Averages()
	require.Greater(t, avg.PTotal, 0.0)
	assert.InDelta(t, acc.EnergyCumJ()/20.0, avg.PTotal, 1e-12)
	t.Logf("avg P(total): %.6f W, E_cum %.6f J", avg.PTotal, acc.EnergyCumJ())
}

func ExampleAccumulator_Apply() {
	acc := New(DefaultConfig())
	r := acc.Apply(proc.Snapshot{TimeSec: 1, UVm: 0.5, UProc: 0.5})
	fmt.Printf("P(cpu)=%.3fW E=%.3fJ\n", r.PCPU, acc.EnergyCumJ())
	// Output: P(cpu)=6.092W E=6.092J
}
