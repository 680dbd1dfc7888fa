package cli

import (
	"errors"
	"fmt"
	"os"
)

// ExitError carries a process exit code and whether output was already
// printed.
type ExitError struct {
	Code    int
	Err     error
	Printed bool
}

func (e *ExitError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func handleCLIError(err error) error {
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Printed {
			return exitErr
		}
		if exitErr.Err != nil {
			err = exitErr.Err
		}
	}

	exitCode := 1
	if exitErr != nil && exitErr.Code != 0 {
		exitCode = exitErr.Code
	}

	fmt.Fprintln(os.Stderr, err.Error())
	return &ExitError{Code: exitCode, Err: err, Printed: true}
}
