package dispatch

import "errors"

// ErrNilHandler is reported in a Result when the handler is nil.
var ErrNilHandler = errors.New("dispatch: nil handler")
