package workload

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"
)

// DefaultMatrixSize keeps one multiply in the tens of milliseconds.
const DefaultMatrixSize = 256

// CPUArtifact records the shape of the last product.
const CPUArtifact = "cpu_last_shape.txt"

type matrix struct {
	n int
	v []float64
}

func newRandomMatrix(n int, r *rand.Rand) matrix {
	m := matrix{n: n, v: make([]float64, n*n)}
	for i := range m.v {
		m.v[i] = r.Float64()
	}
	return m
}

// mul writes a×b into out, scaled by 1/n so repeated products stay bounded.
func mul(a, b, out matrix) {
	n := a.n
	scale := 1 / float64(n)
	for i := 0; i < n; i++ {
		row := out.v[i*n : (i+1)*n]
		clear(row)
		for k := 0; k < n; k++ {
			aik := a.v[i*n+k] * scale
			bk := b.v[k*n : (k+1)*n]
			for j, bkj := range bk {
				row[j] += aik * bkj
			}
		}
	}
}

// MatMul returns a CPU-bound workload: repeated n×n products whose operands
// rotate (a, b = b, a×b). Units are completed multiplications.
func MatMul(n int) Func {
	if n <= 0 {
		n = DefaultMatrixSize
	}
	return func(ctx context.Context, d time.Duration, dir string) (int64, error) {
		r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(n)))
		a, b := newRandomMatrix(n, r), newRandomMatrix(n, r)
		spare := matrix{n: n, v: make([]float64, n*n)}

		var iters int64
		end := time.Now().Add(d)
		for time.Now().Before(end) {
			if err := ctx.Err(); err != nil {
				return iters, err
			}
			mul(a, b, spare)
			a, b, spare = b, spare, a
			iters++
		}

		shape := "none"
		if iters > 0 {
			shape = fmt.Sprintf("(%d, %d)", n, n)
		}
		if err := os.WriteFile(filepath.Join(dir, CPUArtifact), []byte(shape), 0o644); err != nil {
			return iters, fmt.Errorf("cpu: write artifact: %w", err)
		}
		return iters, nil
	}
}
