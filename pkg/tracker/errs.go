package tracker

import "errors"

var (
	ErrNotStarted     = errors.New("tracker: not running")
	ErrAlreadyStarted = errors.New("tracker: already started")
	ErrBadMode        = errors.New("tracker: unknown tracking mode")
)
