package proc

import "errors"

var (
	// ErrNoCPU indicates that /proc/stat had no aggregate CPU line.
	ErrNoCPU = errors.New("proc: no cpu line")

	// ErrNoRSS indicates that resident set size could not be determined.
	ErrNoRSS = errors.New("proc: no rss")

	// ErrBadDt is returned by Sample for a non-positive window.
	ErrBadDt = errors.New("proc: sampling window must be > 0")

	// ErrUnsupported is returned when no collector backend exists for this OS.
	ErrUnsupported = errors.New("proc: unsupported platform")
)
