package uithread

import "errors"

var (
	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("ui loop is already running")

	// ErrStopped is returned when posting to a stopped loop.
	ErrStopped = errors.New("ui loop is stopped")
)
