// Package hooks runs the trailing bootstrap phases: a generic environment
// configuration script, a project-defined init hook described by a manifest,
// and an optional terminal-multiplexer session for interactive containers.
// Each phase is invoked for side effects only; a failure is fatal for the
// run and carries the phase name.
package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Manifest describes the project-defined init hook.
type Manifest struct {
	Name  string `yaml:"name" json:"name"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// Step is one command in the init hook.
type Step struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"environment" json:"environment"`
}

// LoadManifest reads a YAML or JSON init-hook manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read init hook manifest: %w", err)
	}

	var manifest Manifest
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := json.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("failed to parse JSON manifest: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("failed to parse YAML manifest: %w", err)
		}
	}

	if len(manifest.Steps) == 0 {
		return nil, fmt.Errorf("init hook manifest %s has no steps", path)
	}
	for i, step := range manifest.Steps {
		if step.Command == "" {
			return nil, fmt.Errorf("init hook manifest step %d has no command", i)
		}
	}
	return &manifest, nil
}

// Config names the three phases. Empty values disable a phase.
type Config struct {
	// EnvScript is the generic environment configuration script.
	EnvScript string
	// InitManifest is the path to the project-defined init hook manifest.
	InitManifest string
	// TmuxSession starts a named terminal-multiplexer session for
	// interactive containers. Off in CI.
	TmuxSession string
}

// Runner executes the configured phases in order.
type Runner struct {
	cfg Config
}

func NewRunner(cfg Config) *Runner {
	return &Runner{cfg: cfg}
}

// Run executes each enabled phase; the first failure aborts with the phase
// name attached.
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.EnvScript != "" {
		if err := r.runScript(ctx, r.cfg.EnvScript); err != nil {
			return fmt.Errorf("environment hook: %w", err)
		}
	}

	if r.cfg.InitManifest != "" {
		if err := r.runInitHook(ctx); err != nil {
			return fmt.Errorf("init hook: %w", err)
		}
	}

	if r.cfg.TmuxSession != "" {
		if err := r.runCommand(ctx, "tmux", []string{"new-session", "-d", "-s", r.cfg.TmuxSession}, nil); err != nil {
			return fmt.Errorf("tmux session: %w", err)
		}
	}

	return nil
}

func (r *Runner) runInitHook(ctx context.Context) error {
	manifest, err := LoadManifest(r.cfg.InitManifest)
	if err != nil {
		return err
	}

	log.Info().Str("name", manifest.Name).Int("steps", len(manifest.Steps)).Msg("running init hook")
	for _, step := range manifest.Steps {
		if err := r.runCommand(ctx, step.Command, step.Args, step.Environment); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
	}
	return nil
}

func (r *Runner) runScript(ctx context.Context, path string) error {
	return r.runCommand(ctx, "sh", []string{path}, nil)
}

func (r *Runner) runCommand(ctx context.Context, name string, args []string, env map[string]string) error {
	// #nosec G204 - commands come from the project's own hook manifest
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %s: %w", name, strings.TrimSpace(string(out)), err)
	}
	return nil
}
