package media

import "errors"

// ErrInvalidTransition is returned when a status change would violate the
// record lifecycle. The row is left unchanged.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrNotFound is returned when a record lookup misses.
var ErrNotFound = errors.New("media record not found")
