package orchestrator

import (
	"errors"
	"fmt"
)

// ExitError carries a downstream collaborator's non-zero exit code through
// the CLI layer unchanged.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exited with code %d", e.Code)
}

func (e *ExitError) ExitCode() int { return e.Code }

type exitCoder interface {
	ExitCode() int
}

// ExitCode maps an error to the process exit code: typed errors carry their
// own code (validation failures map to 1, collaborator failures propagate
// their status verbatim); anything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}
