package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateSession          = errors.New("a session with this name is already live")
	ErrNoActiveSession           = errors.New("no one is streaming right now")
	ErrMissingParameters         = errors.New("missing required parameters")
	ErrClassificationUnavailable = errors.New("classification service unavailable")
	ErrPlatform                  = errors.New("media platform error")
)

// PlatformError is any failure returned by the media platform. It matches
// ErrPlatform under errors.Is.
type PlatformError struct {
	Op     string // e.g. "create room"
	Status int    // HTTP status, 0 on transport failure
	Code   int    // platform error code, when present
	Err    error
}

func (e *PlatformError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("platform %s: status %d: %v", e.Op, e.Status, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

func (e *PlatformError) Is(target error) bool { return target == ErrPlatform }
