package bootstrap

import "fmt"

// StepError is a bootstrap step failure. Bootstrap steps are not retryable
// within a run, so every StepError is fatal; Status carries the causing
// collaborator's exit code when there is one.
type StepError struct {
	Step   string
	Status int
	Err    error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bootstrap step %s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("bootstrap step %s failed with exit code %d", e.Step, e.Status)
}

func (e *StepError) Unwrap() error { return e.Err }

// ExitCode propagates the collaborator's code verbatim, falling back to 1.
func (e *StepError) ExitCode() int {
	if e.Status != 0 {
		return e.Status
	}
	return 1
}
