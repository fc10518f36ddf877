// Package kerberos runs the secure-auth setup collaborator for test types
// that exercise kerberized integrations.
package kerberos

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
)

// Remediation tells the user what to do when the setup command fails. Runs
// that depend on the service cannot validly proceed without it.
const Remediation = "kerberos setup failed: the requested tests require a working kerberos service; " +
	"check the KDC container is running and KRB5_CONFIG points at its realm, then start a fresh run"

// SetupError is returned when the setup command exits non-zero. The run
// aborts with exit code 1 regardless of the command's own code.
type SetupError struct {
	Status int
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("kerberos setup exited with code %d", e.Status)
}

// ExitCode maps every setup failure to the validation-failure code.
func (e *SetupError) ExitCode() int { return 1 }

// Enabled reports whether the secure-auth bootstrap should run: either
// requested explicitly or implied by an integration that needs it.
func Enabled(flag bool, integrations []string) bool {
	return flag || slices.Contains(integrations, "kerberos")
}

// Bootstrapper wraps the configured setup command.
type Bootstrapper struct {
	Argv []string
}

// Setup runs the setup command and returns its exit status without
// interpreting it; the caller decides whether non-zero aborts the run.
func (b *Bootstrapper) Setup(ctx context.Context) int {
	if len(b.Argv) == 0 {
		return 0
	}
	// #nosec G204 - the setup command comes from configuration
	cmd := exec.CommandContext(ctx, b.Argv[0], b.Argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		return 1
	}
	return 0
}
