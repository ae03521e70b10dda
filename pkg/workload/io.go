package workload

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultBlockSize is written and fsynced once per unit.
const DefaultBlockSize = 2 << 20

const (
	// IOTempFile holds the blocks while the workload runs; it is always removed.
	IOTempFile = "io_temp.bin"
	// IOArtifact records the total bytes written.
	IOArtifact = "io_written_bytes.txt"
)

// BlockWriter returns an IO-bound workload that writes random blocks to a
// temporary file, syncing after each one. Units are bytes written.
func BlockWriter(blockSize uint64) Func {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	return func(ctx context.Context, d time.Duration, dir string) (written int64, err error) {
		block := make([]byte, blockSize)
		if _, err := rand.Read(block); err != nil {
			return 0, fmt.Errorf("io: fill block: %w", err)
		}

		path := filepath.Join(dir, IOTempFile)
		f, err := os.Create(path)
		if err != nil {
			return 0, fmt.Errorf("io: create temp file: %w", err)
		}
		defer func() {
			// the temp file must not survive the run, whatever happened
			_ = f.Close()
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) && err == nil {
				err = fmt.Errorf("io: remove temp file: %w", rmErr)
			}
		}()

		end := time.Now().Add(d)
		for time.Now().Before(end) {
			if err := ctx.Err(); err != nil {
				return written, err
			}
			n, err := f.Write(block)
			written += int64(n)
			if err != nil {
				return written, fmt.Errorf("io: write: %w", err)
			}
			if err := f.Sync(); err != nil {
				return written, fmt.Errorf("io: sync: %w", err)
			}
		}

		marker := filepath.Join(dir, IOArtifact)
		if err := os.WriteFile(marker, []byte(strconv.FormatInt(written, 10)), 0o644); err != nil {
			return written, fmt.Errorf("io: write artifact: %w", err)
		}
		return written, nil
	}
}
