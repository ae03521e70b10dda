package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadSize is returned by ParseBytes for input that is not a size.
var ErrBadSize = errors.New("types: invalid size")

// Bytes is a uint64 wrapper representing a size in bytes.
type Bytes uint64

// ToBytes converts a raw counter to Bytes.
func ToBytes(v uint64) Bytes { return Bytes(v) }

// ToUint64 returns the raw byte count.
func (b Bytes) ToUint64() uint64 { return uint64(b) }

// Humanized returns a human-readable string with automatic unit (B, KB, MB, GB, TB).
func (b Bytes) Humanized() string {
	v := float64(b)
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.2f TB", v/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", v/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", v/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.2f KB", v/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func (b Bytes) String() string { return b.Humanized() }

// KB returns the number of kilobytes (1024 base).
func (b Bytes) KB() float64 { return float64(b) / 1024 }

// MB returns the number of megabytes (1024 base).
func (b Bytes) MB() float64 { return float64(b) / (1024 * 1024) }

// GB returns the number of gigabytes (1024 base).
func (b Bytes) GB() float64 { return float64(b) / (1024 * 1024 * 1024) }

var suffixes = []struct {
	unit string
	mul  uint64
}{
	{"TB", 1 << 40}, {"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10},
	{"T", 1 << 40}, {"G", 1 << 30}, {"M", 1 << 20}, {"K", 1 << 10},
	{"B", 1},
}

// ParseBytes parses sizes such as "2MB", "512 KB", "1.5G" or "4096".
// Units are 1024 based and case-insensitive.
func ParseBytes(s string) (Bytes, error) {
	in := strings.ToUpper(strings.TrimSpace(s))
	if in == "" {
		return 0, ErrBadSize
	}
	mul := uint64(1)
	for _, sf := range suffixes {
		if strings.HasSuffix(in, sf.unit) {
			in = strings.TrimSpace(strings.TrimSuffix(in, sf.unit))
			mul = sf.mul
			break
		}
	}
	v, err := strconv.ParseFloat(in, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadSize, s)
	}
	return Bytes(v * float64(mul)), nil
}
