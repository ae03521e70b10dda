//go:build linux

package proc

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// PageSize returns the system memory page size in bytes.
// PAGE_SIZE in the environment overrides it to ease testing.
func PageSize() int {
	if ps := os.Getenv("PAGE_SIZE"); ps != "" {
		if v, _ := strconv.Atoi(ps); v > 0 {
			return v
		}
	}
	return os.Getpagesize()
}

// ReadSystemCPU returns the aggregate active and total jiffies from /proc/stat.
func ReadSystemCPU() (active, total uint64, err error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	return parseSystemCPU(f)
}

// parseSystemCPU reads the "cpu" line:
//   - active: user + nice + system + irq + softirq + steal
//   - total:  active + idle + iowait
func parseSystemCPU(r io.Reader) (active, total uint64, err error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fs := strings.Fields(sc.Text())
		if len(fs) == 0 || fs[0] != "cpu" {
			continue
		}
		if len(fs) < 9 {
			return 0, 0, ErrNoCPU
		}
		vals := make([]uint64, 8)
		for i := range vals {
			vals[i], _ = strconv.ParseUint(fs[i+1], 10, 64)
		}
		active = vals[0] + vals[1] + vals[2] + vals[5] + vals[6] + vals[7]
		total = active + vals[3] + vals[4]
		return active, total, nil
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, ErrNoCPU
}

// ReadSelfIO returns read_bytes and write_bytes from /proc/self/io.
func ReadSelfIO() (readBytes, writeBytes uint64, err error) {
	f, err := os.Open("/proc/self/io")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	return parseProcIO(f)
}

func parseProcIO(r io.Reader) (readBytes, writeBytes uint64, err error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		switch key {
		case "read_bytes":
			readBytes, _ = strconv.ParseUint(strings.TrimSpace(val), 10, 64)
		case "write_bytes":
			writeBytes, _ = strconv.ParseUint(strings.TrimSpace(val), 10, 64)
		}
	}
	return readBytes, writeBytes, sc.Err()
}

// ReadSelfRSS returns the resident set size in bytes from /proc/self/statm.
func ReadSelfRSS() (uint64, error) {
	b, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0, err
	}
	return parseStatmRSS(string(b), PageSize())
}

// parseStatmRSS takes the second statm field (resident pages).
func parseStatmRSS(statm string, pageSize int) (uint64, error) {
	fs := strings.Fields(statm)
	if len(fs) < 2 {
		return 0, ErrNoRSS
	}
	pages, err := strconv.ParseUint(fs[1], 10, 64)
	if err != nil {
		return 0, ErrNoRSS
	}
	return pages * uint64(pageSize), nil
}
