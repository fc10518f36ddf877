// Package orchestrator sequences the bootstrap, resolves the requested test
// selection, and dispatches execution to one of the downstream runners or
// an interactive shell. The lifecycle is an explicit state machine:
// Bootstrapping -> Validating -> (Interactive | Dispatching) -> Terminal.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/preflight/internal/selector"
	"github.com/wolfeidau/preflight/internal/telemetry"
)

// Bootstrapper prepares the environment before anything runs.
type Bootstrapper interface {
	Run(ctx context.Context) error
}

// TestRunner is a downstream runner collaborator.
type TestRunner interface {
	Name() string
	Run(ctx context.Context, args []string, env map[string]string) (int, error)
}

// Config is the orchestrator's immutable input, built once in the CLI
// layer.
type Config struct {
	// RunTests dispatches a test run; unset drops into an interactive
	// shell instead.
	RunTests bool
	// SystemTests selects the system-tests runner over the standard CI
	// runner.
	SystemTests bool

	TestType string
	// Targets are explicit positional test targets; they override the
	// test-type taxonomy entirely.
	Targets []string
	Profile selector.Profile

	// SourcesDir becomes the working directory before dispatch.
	SourcesDir string

	// Shell and ShellArgs configure the interactive fallback.
	Shell     string
	ShellArgs []string
}

// Orchestrator owns the run lifecycle.
type Orchestrator struct {
	cfg          Config
	bootstrapper Bootstrapper
	ciRunner     TestRunner
	systemRunner TestRunner
}

func New(cfg Config, bootstrapper Bootstrapper, ciRunner, systemRunner TestRunner) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		bootstrapper: bootstrapper,
		ciRunner:     ciRunner,
		systemRunner: systemRunner,
	}
}

// Run executes the whole lifecycle and returns the process exit code. The
// error, when non-nil, names what went wrong; the code already accounts for
// it. Every run ends in the Terminal state, failures included.
func (o *Orchestrator) Run(ctx context.Context) (int, error) {
	runID := uuid.New().String()
	started := time.Now()
	log.Info().Str("run_id", runID).Msg("run starting")

	m := newMachine()

	code, err := o.run(ctx, m)

	if terr := m.transition(StateTerminal); terr != nil {
		return 1, terr
	}

	lvl := zerolog.InfoLevel
	if err != nil {
		lvl = zerolog.ErrorLevel
	}
	log.WithLevel(lvl).
		Err(err).
		Str("run_id", runID).
		Int("exit_code", code).
		Dur("duration", time.Since(started)).
		Msg("run finished")
	return code, err
}

// run drives the machine through bootstrap, validation, and either the
// dispatch or interactive branch. Configuration errors, including an
// unrecognized test type, fail before the bootstrapper mutates anything.
func (o *Orchestrator) run(ctx context.Context, m *machine) (int, error) {
	var testType selector.TestType
	if o.cfg.RunTests {
		tt, err := selector.ParseTestType(o.cfg.TestType)
		if err != nil {
			return ExitCode(err), err
		}
		testType = tt
	}

	if err := o.bootstrapper.Run(ctx); err != nil {
		return ExitCode(err), err
	}

	if o.cfg.SourcesDir != "" {
		if err := os.Chdir(o.cfg.SourcesDir); err != nil {
			return 1, fmt.Errorf("failed to change to sources dir: %w", err)
		}
	}

	if err := m.transition(StateValidating); err != nil {
		return 1, err
	}

	if o.cfg.RunTests {
		return o.dispatch(ctx, m, testType)
	}
	return o.interactive(ctx, m)
}

// dispatch hands the assembled arguments to exactly one runner; its exit
// code is the run's exit code.
func (o *Orchestrator) dispatch(ctx context.Context, m *machine, testType selector.TestType) (int, error) {
	sel := selector.Select(testType, o.cfg.Targets)
	args := selector.BuildArgs(sel, o.cfg.Profile)

	if err := m.transition(StateDispatching); err != nil {
		return 1, err
	}

	r := o.ciRunner
	if o.cfg.SystemTests {
		r = o.systemRunner
	}

	started := time.Now()
	code, err := r.Run(ctx, args, nil)
	if err != nil {
		return 1, err
	}

	mt := telemetry.GetMetrics()
	attrs := metric.WithAttributes(
		attribute.String("runner", r.Name()),
		attribute.String("test_type", testType.String()),
		attribute.Bool("passed", code == 0),
	)
	mt.TestRunsTotal.Add(ctx, 1, attrs)
	mt.TestRunDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)

	return code, nil
}

// interactive starts the configured shell with stdio forwarded and the
// residual positional arguments passed through; the shell's exit code
// becomes the run's.
func (o *Orchestrator) interactive(ctx context.Context, m *machine) (int, error) {
	if err := m.transition(StateInteractive); err != nil {
		return 1, err
	}

	shell := o.cfg.Shell
	if shell == "" {
		shell = "bash"
	}
	log.Info().Str("shell", shell).Msg("test execution not requested, starting interactive shell")

	// #nosec G204 - the shell comes from configuration
	cmd := exec.CommandContext(ctx, shell, o.cfg.ShellArgs...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("failed to start interactive shell: %w", err)
	}
	return 0, nil
}
