// Package bootstrap prepares the CI runtime before any test is dispatched:
// filesystem permissions, the package under test, dist artifacts, the
// environment validation gate, the secure-auth service, remote-login
// credentials, and the trailing project hooks. Steps run strictly in
// sequence; no step starts before the previous one's completion is
// observed.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/preflight/internal/dist"
	"github.com/wolfeidau/preflight/internal/envcheck"
	"github.com/wolfeidau/preflight/internal/install"
	"github.com/wolfeidau/preflight/internal/kerberos"
	"github.com/wolfeidau/preflight/internal/sshcreds"
	"github.com/wolfeidau/preflight/internal/telemetry"
)

// Environment variables the bootstrapper publishes for downstream
// collaborators. These are the only process-wide values it mutates.
const (
	EnvHome       = "PREFLIGHT_HOME"
	EnvLegacyMode = "PREFLIGHT_LEGACY_MODE"
)

// Step is a named, side-effecting bootstrap action.
type Step struct {
	Name string
	// Idempotent steps converge when re-run against a half-prepared
	// environment; failure logs carry the flag so the operator knows
	// whether a fresh run is safe.
	Idempotent bool
	// FatalOnFailure wraps any error in a StepError naming the step.
	// Steps with it unset capture their collaborator's status and raise
	// a typed error carrying the exit code themselves.
	FatalOnFailure bool
	Run            func(ctx context.Context) error
}

type installResolver interface {
	Apply(ctx context.Context, spec install.ModeSpec) error
}

type distInstaller interface {
	InstallFromDirectory(ctx context.Context, dir string, filter dist.Format, skipPrimaryWheel bool) error
}

type authBootstrapper interface {
	Setup(ctx context.Context) int
}

type hookRunner interface {
	Run(ctx context.Context) error
}

// Bootstrapper sequences the environment-preparation steps.
type Bootstrapper struct {
	cfg       Config
	resolver  installResolver
	dist      distInstaller
	validator envcheck.Validator
	auth      authBootstrapper
	scanner   sshcreds.HostKeyScanner
	hooks     hookRunner
}

func New(cfg Config, resolver installResolver, distInst distInstaller, validator envcheck.Validator, auth authBootstrapper, scanner sshcreds.HostKeyScanner, hookRunner hookRunner) *Bootstrapper {
	cfg.ApplyDefaults()
	return &Bootstrapper{
		cfg:       cfg,
		resolver:  resolver,
		dist:      distInst,
		validator: validator,
		auth:      auth,
		scanner:   scanner,
		hooks:     hookRunner,
	}
}

// Run executes every step in order, logging and recording the duration of
// each. The first failure aborts the run.
func (b *Bootstrapper) Run(ctx context.Context) error {
	m := telemetry.GetMetrics()

	for _, step := range b.steps() {
		started := time.Now()
		log.Info().Str("step", step.Name).Msg("bootstrap step starting")

		err := step.Run(ctx)
		elapsed := time.Since(started)

		attrs := metric.WithAttributes(attribute.String("step", step.Name))
		m.BootstrapStepsTotal.Add(ctx, 1, attrs)
		m.BootstrapStepDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)

		if err != nil {
			m.BootstrapStepErrorsTotal.Add(ctx, 1, attrs)
			log.Error().
				Err(err).
				Str("step", step.Name).
				Bool("idempotent", step.Idempotent).
				Dur("duration", elapsed).
				Msg("bootstrap step failed")
			if step.FatalOnFailure {
				return &StepError{Step: step.Name, Err: err}
			}
			// the step captured its collaborator's status and raised a
			// typed error carrying the exit code itself
			return err
		}

		log.Info().Str("step", step.Name).Dur("duration", elapsed).Msg("bootstrap step done")
	}
	return nil
}

func (b *Bootstrapper) steps() []Step {
	steps := []Step{
		{Name: "relax-temp-permissions", Idempotent: true, FatalOnFailure: true, Run: b.relaxTempPermissions},
		{Name: "resolve-home", Idempotent: true, FatalOnFailure: true, Run: b.resolveHome},
	}

	if !b.cfg.ManagedRunner && b.cfg.ToolsDir != "" {
		steps = append(steps, Step{Name: "link-cli-tools", Idempotent: true, FatalOnFailure: true, Run: b.linkCLITools})
	}

	steps = append(steps,
		Step{Name: "legacy-version-flag", Idempotent: true, FatalOnFailure: true, Run: b.exportLegacyFlag},
		Step{Name: "install-package", FatalOnFailure: true, Run: func(ctx context.Context) error {
			return b.resolver.Apply(ctx, b.cfg.ModeSpec)
		}},
	)

	if b.cfg.InstallFromDist {
		steps = append(steps, Step{Name: "install-dist-packages", FatalOnFailure: true, Run: func(ctx context.Context) error {
			skipPrimaryWheel := b.cfg.ModeSpec.Mode == install.ModeWheel
			return b.dist.InstallFromDirectory(ctx, b.cfg.DistDir, b.cfg.DistFormat, skipPrimaryWheel)
		}})
	}

	// the validator and the secure-auth setup report status codes rather
	// than aborting; their steps capture the code and re-raise it
	steps = append(steps, Step{Name: "validate-environment", Run: b.validateEnvironment})

	if kerberos.Enabled(b.cfg.KerberosEnabled, b.cfg.Integrations) {
		steps = append(steps, Step{Name: "kerberos-setup", Run: b.kerberosSetup})
	}

	return append(steps,
		Step{Name: "login-credentials", FatalOnFailure: true, Run: b.loginCredentials},
		Step{Name: "host-key-readiness", Idempotent: true, FatalOnFailure: true, Run: b.waitHostKeys},
		Step{Name: "bootstrap-hooks", FatalOnFailure: true, Run: b.hooks.Run},
	)
}

// relaxTempPermissions lets later steps running as other effective users
// write to the shared temp directory.
func (b *Bootstrapper) relaxTempPermissions(ctx context.Context) error {
	if err := os.MkdirAll(b.cfg.TempDir, 0o777); err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	if err := os.Chmod(b.cfg.TempDir, 0o777|os.ModeSticky); err != nil {
		return fmt.Errorf("failed to relax temp dir permissions: %w", err)
	}
	return nil
}

// resolveHome exports the working home and echoes the resolved
// configuration. Diagnostics print before any fatal check so failures are
// always preceded by visible context.
func (b *Bootstrapper) resolveHome(ctx context.Context) error {
	if err := os.Setenv(EnvHome, b.cfg.HomeDir); err != nil {
		return fmt.Errorf("failed to export %s: %w", EnvHome, err)
	}

	evt := log.Info().
		Str("home", b.cfg.HomeDir).
		Str("sources", b.cfg.SourcesDir).
		Str("install_mode", b.cfg.ModeSpec.Mode.String())
	if b.cfg.DatabaseDSN != "" {
		evt = evt.Str("database_dsn", b.cfg.DatabaseDSN)
	}
	evt.Msg("resolved configuration")

	return os.MkdirAll(b.cfg.HomeDir, 0o755)
}

// linkCLITools symlinks local tool scripts into the local bin dir.
func (b *Bootstrapper) linkCLITools(ctx context.Context) error {
	entries, err := os.ReadDir(b.cfg.ToolsDir)
	if err != nil {
		return fmt.Errorf("failed to read tools dir: %w", err)
	}
	if err := os.MkdirAll(b.cfg.LocalBin, 0o755); err != nil {
		return fmt.Errorf("failed to create local bin dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		target := filepath.Join(b.cfg.ToolsDir, entry.Name())
		link := filepath.Join(b.cfg.LocalBin, strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
		if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to replace %s: %w", link, err)
		}
		if err := os.Symlink(target, link); err != nil {
			return fmt.Errorf("failed to link %s: %w", link, err)
		}
		log.Debug().Str("link", link).Str("target", target).Msg("linked cli tool")
	}
	return nil
}

// exportLegacyFlag substring-matches the legacy version marker against both
// version sources and publishes the result for downstream collaborators.
func (b *Bootstrapper) exportLegacyFlag(ctx context.Context) error {
	legacy := b.cfg.LegacyMarker != "" &&
		(strings.Contains(b.cfg.VersionSpecifier, b.cfg.LegacyMarker) ||
			strings.Contains(b.cfg.RuntimeImageVersion, b.cfg.LegacyMarker))

	log.Info().Bool("legacy_mode", legacy).Msg("legacy compatibility flag")
	return os.Setenv(EnvLegacyMode, fmt.Sprintf("%t", legacy))
}

// validateEnvironment captures the validator's status and re-raises
// non-zero as a fatal StepError carrying the code.
func (b *Bootstrapper) validateEnvironment(ctx context.Context) error {
	status := b.validator.Run(ctx)
	if status != 0 {
		return &StepError{Step: "validate-environment", Status: status}
	}
	return nil
}

// kerberosSetup captures the setup status; non-zero aborts the whole run
// with exit code 1 and the remediation message. The condition is not
// transient within the run's lifetime, so there is no retry.
func (b *Bootstrapper) kerberosSetup(ctx context.Context) error {
	status := b.auth.Setup(ctx)
	if status != 0 {
		log.Error().Int("status", status).Msg(kerberos.Remediation)
		return &kerberos.SetupError{Status: status}
	}
	return nil
}

// loginCredentials creates the keypair, authorizes it, and restarts the
// login service. Ordering matters: the restart must happen after the
// credentials exist or the service would serve stale state.
func (b *Bootstrapper) loginCredentials(ctx context.Context) error {
	kp, err := sshcreds.Generate(b.cfg.SSHDir, "id_ed25519")
	if err != nil {
		return err
	}
	if err := sshcreds.Authorize(b.cfg.SSHDir, kp.AuthorizedKey); err != nil {
		return err
	}
	if len(b.cfg.SSHRestartArgv) > 0 {
		if err := runCommand(ctx, b.cfg.SSHRestartArgv); err != nil {
			return fmt.Errorf("failed to restart login service: %w", err)
		}
	}
	return nil
}

// waitHostKeys blocks until the restarted login service exposes the
// expected host keys, then records them as known.
func (b *Bootstrapper) waitHostKeys(ctx context.Context) error {
	keys, err := sshcreds.WaitHostKeys(ctx, b.scanner, b.cfg.HostKeyCount, b.cfg.HostKeyInterval, b.cfg.HostKeyTimeout)
	if err != nil {
		return err
	}
	return sshcreds.RecordKnownHosts(b.cfg.SSHDir, keys)
}
