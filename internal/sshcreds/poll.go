package sshcreds

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// HostKeyScanner exposes the login service's host keys.
type HostKeyScanner interface {
	HostKeys(ctx context.Context) ([]string, error)
}

// TimeoutError is returned when the host-key surface did not reach the
// expected key count before the poll deadline.
type TimeoutError struct {
	Want     int
	Observed int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("host keys not ready after %s: observed %d, want %d", e.Elapsed.Round(time.Millisecond), e.Observed, e.Want)
}

// WaitHostKeys polls scanner at a constant interval until it reports exactly
// want host keys, the context is cancelled, or maxElapsed passes. Scanner
// errors are treated as "not ready yet": sshd drops connections while it is
// still starting.
func WaitHostKeys(ctx context.Context, scanner HostKeyScanner, want int, interval, maxElapsed time.Duration) ([]string, error) {
	started := time.Now()
	observed := 0

	keys, err := backoff.Retry(ctx, func() ([]string, error) {
		lines, err := scanner.HostKeys(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("host key scan not ready")
			return nil, err
		}
		observed = len(lines)
		if observed != want {
			return nil, fmt.Errorf("observed %d host keys, want %d", observed, want)
		}
		return lines, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxElapsedTime(maxElapsed),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TimeoutError{Want: want, Observed: observed, Elapsed: time.Since(started)}
	}

	log.Info().Int("host_keys", len(keys)).Dur("waited", time.Since(started)).Msg("login service host keys ready")
	return keys, nil
}

// KeyscanScanner scans host keys by running ssh-keyscan against the local
// login service.
type KeyscanScanner struct {
	Host string
	Port string
}

func (s *KeyscanScanner) HostKeys(ctx context.Context) ([]string, error) {
	host := s.Host
	if host == "" {
		host = "localhost"
	}
	args := []string{"-H", host}
	if s.Port != "" {
		args = []string{"-p", s.Port, "-H", host}
	}

	out, err := exec.CommandContext(ctx, "ssh-keyscan", args...).Output()
	if err != nil {
		return nil, fmt.Errorf("ssh-keyscan failed: %w", err)
	}

	var lines []string
	for line := range strings.Lines(string(out)) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
