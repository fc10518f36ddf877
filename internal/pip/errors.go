package pip

import "fmt"

// CommandError is returned when a pip invocation exits non-zero. It carries
// the exit code and captured output so callers can surface both.
type CommandError struct {
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("pip %v failed with exit code %d: %s", e.Args, e.ExitCode, e.Output)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
