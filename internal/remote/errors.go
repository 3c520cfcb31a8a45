package remote

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a task, category, or tenant no longer exists
// upstream.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput is returned when the store rejects a request payload.
var ErrInvalidInput = errors.New("invalid input")

// Error is a network or server failure reported by the store.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote %s failed (%d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err (or any error in its chain) is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRemoteError reports whether err (or any error in its chain) is an *Error.
func IsRemoteError(err error) bool {
	var remoteErr *Error
	return errors.As(err, &remoteErr)
}
