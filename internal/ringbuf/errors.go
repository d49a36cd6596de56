package ringbuf

import "errors"

var (
	// ErrInterrupted reports that waiting for the store lock was aborted.
	ErrInterrupted = errors.New("interrupted while waiting for record store")
	// ErrOutOfRange reports a record index (or seek target) outside the occupied window.
	ErrOutOfRange = errors.New("position out of range")
	// ErrInvalidOffset reports an intra-record offset at or past the record size.
	ErrInvalidOffset = errors.New("invalid intra-record offset")
	// ErrNotFound reports an absolute offset at or past the end of the log.
	ErrNotFound = errors.New("offset beyond end of log")
	// ErrAllocation reports that a record could not grow to hold more input.
	ErrAllocation = errors.New("record allocation failed")
	// ErrIO reports a transport failure scoped to one connection.
	ErrIO = errors.New("i/o failure")
	// ErrTrailingData reports bytes following a terminator in a single feed.
	ErrTrailingData = errors.New("data after record terminator")
)
