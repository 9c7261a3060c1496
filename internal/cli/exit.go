package cli

import "fmt"

// Process exit codes. ExitFault is used by the fault handler directly.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitFault  = 2
	ExitConfig = 3
)

// ExitCodeError carries the process exit code for main.
type ExitCodeError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitCodeError) Error() string {
	return e.Message
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

func exitError(code int, err error, format string, args ...any) *ExitCodeError {
	return &ExitCodeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...) + ": " + err.Error(),
		Err:     err,
	}
}
