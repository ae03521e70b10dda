package workload

import (
	"context"
	"math"
	"time"
)

// Idle sleeps for d to measure near-idle consumption. Units are the whole
// seconds requested; it leaves no artifact.
func Idle(ctx context.Context, d time.Duration, _ string) (int64, error) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-t.C:
		return int64(math.Round(d.Seconds())), nil
	}
}
