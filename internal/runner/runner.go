// Package runner dispatches the assembled arguments to a downstream test
// runner and reports its exit code. Output is streamed live so CI logs show
// progress while the suite runs.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	consolestream "github.com/wolfeidau/console-stream"
)

// Runner wraps one downstream test-runner command.
type Runner struct {
	name    string
	command string
}

// New returns a Runner for the named command, e.g. the standard CI tests
// entry or the system-tests entry.
func New(name, command string) *Runner {
	return &Runner{name: name, command: command}
}

// Name identifies the runner in logs.
func (r *Runner) Name() string { return r.name }

// Run executes the runner with the full argument list unmodified and
// returns its exit code. The code is propagated verbatim; interpreting it
// is the caller's concern.
func (r *Runner) Run(ctx context.Context, args []string, env map[string]string) (int, error) {
	log.Info().Str("runner", r.name).Str("command", r.command).Strs("args", args).Msg("dispatching test run")

	opts := []consolestream.ProcessOption{
		consolestream.WithPipeMode(),
		consolestream.WithFlushInterval(time.Second),
	}
	if len(env) > 0 {
		opts = append(opts, consolestream.WithEnvMap(env))
	}

	process := consolestream.NewProcess(r.command, args, opts...)

	for event, err := range process.ExecuteAndStream(ctx) {
		if err != nil {
			return -1, fmt.Errorf("%s runner failed: %w", r.name, err)
		}

		switch e := event.Event.(type) {
		case *consolestream.ProcessStart:
			log.Info().Str("runner", r.name).Int("pid", e.PID).Msg("test run started")

		case *consolestream.OutputData:
			if _, err := os.Stdout.Write(e.Data); err != nil {
				log.Warn().Err(err).Msg("failed to write runner output")
			}

		case *consolestream.ProcessEnd:
			log.Info().
				Str("runner", r.name).
				Int("exit_code", e.ExitCode).
				Dur("duration", e.Duration).
				Msg("test run finished")
			return e.ExitCode, nil
		}
	}

	return -1, errors.New("test runner ended without a process end event")
}
