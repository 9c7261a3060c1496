package trace

import "errors"

var (
	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("trace producer already started")

	// ErrInvalidInterval is returned for a negative or inverted interval range.
	ErrInvalidInterval = errors.New("invalid trace interval")

	// ErrNoFormatFunc is returned when a format script does not define format().
	ErrNoFormatFunc = errors.New("format script does not define format(seq, unix_ms)")
)
