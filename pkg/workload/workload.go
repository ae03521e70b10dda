// Package workload provides the bounded jobs that run under measurement.
//
// Every workload has the same shape: it runs for roughly the requested
// duration, writes a small diagnostic artifact into dir, and returns a count
// of completed units. The deadline is checked once per unit, so a workload
// overruns by at most one unit.
package workload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownKind is returned by Lookup and ParseKind for unsupported names.
var ErrUnknownKind = errors.New("workload: unknown task")

// Kind names a workload.
type Kind string

const (
	CPU      Kind = "cpu"
	IO       Kind = "io"
	Baseline Kind = "baseline"
)

// Kinds lists the supported workloads in CLI order.
func Kinds() []Kind { return []Kind{CPU, IO, Baseline} }

func (k Kind) Valid() bool {
	switch k {
	case CPU, IO, Baseline:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Unit describes what the returned count measures.
func (k Kind) Unit() string {
	switch k {
	case CPU:
		return "matrix multiplications"
	case IO:
		return "bytes written"
	case Baseline:
		return "seconds idle"
	}
	return "units"
}

// ParseKind parses a task name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q (want cpu, io or baseline)", ErrUnknownKind, s)
	}
	return k, nil
}

// Func runs a workload for d and returns the number of units completed.
type Func func(ctx context.Context, d time.Duration, dir string) (int64, error)

// Options tunes the workloads returned by Lookup.
type Options struct {
	MatrixSize int    // cpu: N for the N×N operands
	BlockSize  uint64 // io: bytes per write
}

// DefaultOptions returns the sizes used by the CLI.
func DefaultOptions() Options {
	return Options{MatrixSize: DefaultMatrixSize, BlockSize: DefaultBlockSize}
}

// Lookup returns the workload for k.
func Lookup(k Kind, o Options) (Func, error) {
	switch k {
	case CPU:
		return MatMul(o.MatrixSize), nil
	case IO:
		return BlockWriter(o.BlockSize), nil
	case Baseline:
		return Idle, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
}
