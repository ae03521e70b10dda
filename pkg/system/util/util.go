// Package util holds the small numeric helpers shared by the sampler, the
// power model and the metrics deriver.
package util

import (
	"math"
	"strconv"
)

// EMA is an exponential moving average. The first value passes through.
type EMA struct {
	alpha, prev float64
	ok          bool
}

func NewEMA(alpha float64) *EMA { return &EMA{alpha: Clamp01(alpha)} }

func (e *EMA) Next(v float64) float64 {
	if !e.ok {
		e.prev, e.ok = v, true
		return v
	}
	e.prev = e.alpha*v + (1-e.alpha)*e.prev
	return e.prev
}

func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	// counter wrapped or prev unset
	return 0
}

func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

func Clamp01(x float64) float64 {
	// NaN compares false against everything, check it first
	if math.IsNaN(x) {
		return 0
	}
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func Pow(a, b float64) float64 {
	if a <= 0 {
		return 0
	}
	return math.Exp(b * math.Log(a))
}

// Finite reports whether x is neither NaN nor ±Inf.
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Round rounds x half away from zero to the given number of decimal places.
func Round(x float64, places int) float64 {
	if !Finite(x) {
		return x
	}
	p := math.Pow(10, float64(places))
	if !Finite(x * p) {
		// already coarser than the requested precision
		return x
	}
	r := math.Round(x*p) / p
	if r == 0 {
		// drop negative zero
		return 0
	}
	return r
}

// FmtFloat formats x with the fewest digits that parse back to x.
func FmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
