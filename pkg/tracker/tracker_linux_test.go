//go:build linux

package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/carbonrun/pkg/correlate"
)

func TestEmissionsTracker_SelfProcess(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.CountryISO = "ARG"
	cfg.Interval = 20 * time.Millisecond

	tr, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, tr.Start())

	end := time.Now().Add(100 * time.Millisecond)
	x := 0.0
	for time.Now().Before(end) {
		x += 1e-9
	}
	t.Logf("burn=%g", x)

	kg, err := tr.Stop()
	require.NoError(t, err)
	require.NotNil(t, kg)
	assert.GreaterOrEqual(t, *kg, 0.0)

	row, ok, err := correlate.Last(tr.OutputPath(), tr.RunID())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tr.RunID(), row.RunID())
	t.Logf("cpu_power=%s W energy=%s kWh emissions=%s kg",
		row["cpu_power"], row["energy_consumed"], row["emissions"])
}
