// Package envcheck validates the runtime before any test is dispatched:
// working-home writability, required tools on PATH, and database
// reachability. An external command can replace the built-in checks, which
// keeps the validator an opaque collaborator for callers either way.
package envcheck

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Validator reports an integer status; non-zero is fatal for the run.
type Validator interface {
	Run(ctx context.Context) int
}

// Check is a single named validation.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config selects which built-in checks run.
type Config struct {
	HomeDir     string
	Tools       []string
	Backend     string
	PostgresDSN string
	MySQLAddr   string
}

// Checks is the built-in Validator.
type Checks struct {
	checks []Check
}

// New assembles the built-in checks for cfg.
func New(cfg Config) *Checks {
	var checks []Check

	if cfg.HomeDir != "" {
		checks = append(checks, Check{Name: "home-writable", Run: func(ctx context.Context) error {
			return checkWritable(cfg.HomeDir)
		}})
	}

	for _, tool := range cfg.Tools {
		checks = append(checks, Check{Name: "tool-" + tool, Run: func(ctx context.Context) error {
			if _, err := exec.LookPath(tool); err != nil {
				return fmt.Errorf("%s not found on PATH: %w", tool, err)
			}
			return nil
		}})
	}

	switch cfg.Backend {
	case "postgres":
		if cfg.PostgresDSN != "" {
			checks = append(checks, Check{Name: "postgres-reachable", Run: func(ctx context.Context) error {
				return checkPostgres(ctx, cfg.PostgresDSN)
			}})
		}
	case "mysql":
		if cfg.MySQLAddr != "" {
			checks = append(checks, Check{Name: "mysql-reachable", Run: func(ctx context.Context) error {
				return checkTCP(ctx, cfg.MySQLAddr)
			}})
		}
	}

	return &Checks{checks: checks}
}

// Run executes every check and returns the number that failed. All checks
// run even after a failure so the log shows the full picture.
func (c *Checks) Run(ctx context.Context) int {
	failed := 0
	for _, check := range c.checks {
		if err := check.Run(ctx); err != nil {
			log.Error().Err(err).Str("check", check.Name).Msg("environment check failed")
			failed++
			continue
		}
		log.Debug().Str("check", check.Name).Msg("environment check passed")
	}
	return failed
}

func checkWritable(dir string) error {
	probe := filepath.Join(dir, ".envcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	return os.Remove(probe)
}

// Command is a Validator that defers to an external command and reports its
// exit code verbatim.
type Command struct {
	Argv []string
}

func (c *Command) Run(ctx context.Context) int {
	if len(c.Argv) == 0 {
		return 0
	}
	// #nosec G204 - the validator command comes from configuration
	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		log.Error().Err(err).Msg("environment validator failed to start")
		return 1
	}
	return 0
}
