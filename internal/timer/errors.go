package timer

import "errors"

// Sentinel errors for invalid transitions and business-rule rejections.
// All are recoverable: the stored state is unchanged when they are returned.
var (
	ErrAlreadyActive = errors.New("a timer is already active")
	ErrNotRunning    = errors.New("timer is not running")
	ErrNotPaused     = errors.New("timer is not paused")
	ErrNoActiveTimer = errors.New("no active timer")
	ErrTooShort      = errors.New("session is shorter than the minimum duration")
	ErrInvalidInput  = errors.New("invalid input")
)
