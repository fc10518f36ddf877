package bootstrap

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// runCommand executes a short collaborator command, attaching captured
// output to the error on failure.
func runCommand(ctx context.Context, argv []string) error {
	// #nosec G204 - commands come from configuration
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %s: %w", argv[0], strings.TrimSpace(string(out)), err)
	}
	return nil
}
