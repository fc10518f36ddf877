package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/preflight/internal/assets"
	"github.com/wolfeidau/preflight/internal/bootstrap"
	"github.com/wolfeidau/preflight/internal/dist"
	"github.com/wolfeidau/preflight/internal/envcheck"
	"github.com/wolfeidau/preflight/internal/hooks"
	"github.com/wolfeidau/preflight/internal/install"
	"github.com/wolfeidau/preflight/internal/kerberos"
	"github.com/wolfeidau/preflight/internal/logger"
	"github.com/wolfeidau/preflight/internal/orchestrator"
	"github.com/wolfeidau/preflight/internal/pip"
	"github.com/wolfeidau/preflight/internal/runner"
	"github.com/wolfeidau/preflight/internal/selector"
	"github.com/wolfeidau/preflight/internal/sshcreds"
	"github.com/wolfeidau/preflight/internal/telemetry"
)

// RunCmd is the container entrypoint: bootstrap the environment, then
// dispatch the requested test run or drop into an interactive shell.
type RunCmd struct {
	// Package under test
	PackageVersion  string `help:"Install mode: empty uses the image's install, 'none' strips it, 'wheel'/'sdist' install local artifacts, anything else is a released version." env:"PREFLIGHT_PACKAGE_VERSION" default:""`
	PackageExtras   string `help:"Comma-separated extras installed with the primary package." env:"PREFLIGHT_PACKAGE_EXTRAS" default:""`
	PackageFormat   string `help:"Artifact format for dist-directory installs." enum:"wheel,sdist,both" env:"PREFLIGHT_PACKAGE_FORMAT" default:"wheel"`
	PrimaryPackage  string `help:"Distribution name of the package under test." env:"PREFLIGHT_PRIMARY_PACKAGE" default:"apache-airflow"`
	ProviderPrefix  string `help:"Prefix identifying provider packages in the freeze listing." env:"PREFLIGHT_PROVIDER_PREFIX" default:"apache-airflow-backport-providers"`
	InstallFromDist bool   `help:"Install locally built artifacts from the dist directory." env:"PREFLIGHT_INSTALL_FROM_DIST"`
	DistDir         string `help:"Directory holding locally built artifacts." env:"PREFLIGHT_DIST_DIR" default:"/dist"`
	PipBin          string `help:"Package installer executable." env:"PREFLIGHT_PIP_BIN" default:"pip"`

	// Test selection
	RunTests     bool     `help:"Dispatch a test run; unset drops into an interactive shell." env:"PREFLIGHT_RUN_TESTS"`
	SystemTests  bool     `help:"Dispatch to the system-tests runner instead of the standard CI runner." env:"PREFLIGHT_RUN_SYSTEM_TESTS"`
	TestType     string   `help:"Test type: Core, Helm, All, Quarantined, Postgres, MySQL, Heisentests, Long or Integration." env:"PREFLIGHT_TEST_TYPE" default:"All"`
	Integrations string   `help:"Space-separated integration names enabled for the run." env:"PREFLIGHT_INTEGRATION_TESTS" default:""`
	CI           bool     `help:"Enable the CI argument profile." env:"CI"`
	CIRunner     string   `help:"Standard CI test runner command." env:"PREFLIGHT_CI_RUNNER" default:"pytest"`
	SystemRunner string   `help:"System tests runner command." env:"PREFLIGHT_SYSTEM_RUNNER" default:"run-system-tests"`
	Targets      []string `arg:"" optional:"" help:"Explicit test targets; overrides the test type."`

	// Environment
	HomeDir             string `help:"Working home directory exported to collaborators." env:"PREFLIGHT_HOME" default:"/root/airflow"`
	SourcesDir          string `help:"Checked-out source tree; becomes the working directory." env:"PREFLIGHT_SOURCES" default:"/opt/airflow"`
	TempDir             string `help:"Shared temp directory." env:"PREFLIGHT_TEMP_DIR" default:"/tmp"`
	ToolsDir            string `help:"Local CLI-tool scripts symlinked into the local bin dir." env:"PREFLIGHT_TOOLS_DIR"`
	LocalBin            string `help:"Local bin directory for tool symlinks." env:"PREFLIGHT_LOCAL_BIN" default:"/usr/local/bin"`
	ManagedRunner       bool   `help:"Skip tool symlinks; the managed CI runner provisions them." env:"PREFLIGHT_MANAGED_RUNNER"`
	RuntimeImageVersion string `help:"Version baked into the runtime image." env:"PREFLIGHT_IMAGE_VERSION"`
	LegacyMarker        string `help:"Version substring that enables the legacy compatibility flag." env:"PREFLIGHT_LEGACY_MARKER" default:"1.10"`
	WWWDir              string `help:"Frontend source tree for the asset pipeline." env:"PREFLIGHT_WWW_DIR"`

	// Validation and auth
	DatabaseDSN   string `help:"Database connection string, echoed and checked when present." env:"PREFLIGHT_DATABASE_DSN"`
	Backend       string `help:"Database backend under test." enum:"postgres,mysql,sqlite" env:"PREFLIGHT_BACKEND" default:"postgres"`
	MySQLAddr     string `help:"MySQL host:port for reachability checks." env:"PREFLIGHT_MYSQL_ADDR"`
	EnvCheckCmd   string `help:"External command replacing the built-in environment checks." env:"PREFLIGHT_ENV_CHECK"`
	Kerberos      bool   `help:"Bootstrap the kerberos service." env:"PREFLIGHT_KERBEROS"`
	KerberosSetup string `help:"Kerberos setup command." env:"PREFLIGHT_KERBEROS_SETUP"`

	// Remote login
	SSHDir          string        `help:"Directory for the login keypair and authorized_keys." env:"PREFLIGHT_SSH_DIR" default:"/root/.ssh"`
	SSHRestart      string        `help:"Command restarting the local login service." env:"PREFLIGHT_SSH_RESTART" default:"service ssh restart"`
	HostKeyCount    int           `help:"Host-key lines expected from the login service." env:"PREFLIGHT_HOST_KEY_COUNT" default:"3"`
	HostKeyInterval time.Duration `help:"Interval between host-key polls." env:"PREFLIGHT_HOST_KEY_INTERVAL" default:"1s"`
	HostKeyTimeout  time.Duration `help:"Maximum time to wait for host keys." env:"PREFLIGHT_HOST_KEY_TIMEOUT" default:"2m"`

	// Hooks and fallback
	EnvScript    string `help:"Generic environment configuration script." env:"PREFLIGHT_ENV_SCRIPT"`
	InitManifest string `help:"Project-defined init hook manifest (YAML or JSON)." env:"PREFLIGHT_INIT_MANIFEST"`
	TmuxSession  string `help:"Terminal-multiplexer session name for interactive containers." env:"PREFLIGHT_TMUX_SESSION"`
	Shell        string `help:"Interactive fallback shell." env:"PREFLIGHT_SHELL" default:"bash"`

	Tracing bool `help:"Export OTLP traces and metrics." env:"PREFLIGHT_TRACING"`
}

// Validate rejects conflicting configuration before any side effect runs.
func (r *RunCmd) Validate() error {
	if r.InstallFromDist && r.PackageFormat == "both" {
		return fmt.Errorf("package format %q: installing from the dist directory requires exactly one artifact format", r.PackageFormat)
	}
	if r.RunTests {
		if _, err := selector.ParseTestType(r.TestType); err != nil {
			return err
		}
	}
	return nil
}

func (r *RunCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	if r.Tracing {
		shutdown, err := telemetry.InitTelemetry(ctx, "preflight", globals.Version)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("telemetry shutdown failed")
			}
		}()
	}

	format, err := dist.ParseFormat(r.PackageFormat)
	if err != nil {
		return err
	}

	integrations := strings.Fields(r.Integrations)
	extras := pip.ParseExtras(r.PackageExtras)
	installer := pip.NewClient(r.PipBin)

	var pipeline install.AssetPipeline
	if r.WWWDir != "" {
		pipeline = assets.New(assets.DefaultConfig(r.WWWDir))
	}

	resolver := install.NewResolver(installer, pipeline, install.Config{
		PrimaryPackage: r.PrimaryPackage,
		ProviderPrefix: r.ProviderPrefix,
		Extras:         extras,
		DistDir:        r.DistDir,
		HomeDir:        r.HomeDir,
	})

	var validator envcheck.Validator
	if r.EnvCheckCmd != "" {
		validator = &envcheck.Command{Argv: strings.Fields(r.EnvCheckCmd)}
	} else {
		validator = envcheck.New(envcheck.Config{
			HomeDir:     r.HomeDir,
			Tools:       []string{r.PipBin, "ssh-keyscan"},
			Backend:     r.Backend,
			PostgresDSN: r.DatabaseDSN,
			MySQLAddr:   r.MySQLAddr,
		})
	}

	b := bootstrap.New(bootstrap.Config{
		HomeDir:             r.HomeDir,
		SourcesDir:          r.SourcesDir,
		TempDir:             r.TempDir,
		DatabaseDSN:         r.DatabaseDSN,
		ToolsDir:            r.ToolsDir,
		LocalBin:            r.LocalBin,
		ManagedRunner:       r.ManagedRunner,
		ModeSpec:            install.ParseModeSpec(r.PackageVersion),
		InstallFromDist:     r.InstallFromDist,
		DistDir:             r.DistDir,
		DistFormat:          format,
		VersionSpecifier:    r.PackageVersion,
		RuntimeImageVersion: r.RuntimeImageVersion,
		LegacyMarker:        r.LegacyMarker,
		KerberosEnabled:     r.Kerberos,
		Integrations:        integrations,
		SSHDir:              r.SSHDir,
		SSHRestartArgv:      strings.Fields(r.SSHRestart),
		HostKeyCount:        r.HostKeyCount,
		HostKeyInterval:     r.HostKeyInterval,
		HostKeyTimeout:      r.HostKeyTimeout,
	},
		resolver,
		dist.NewInstaller(installer, r.PrimaryPackage),
		validator,
		&kerberos.Bootstrapper{Argv: strings.Fields(r.KerberosSetup)},
		&sshcreds.KeyscanScanner{},
		hooks.NewRunner(hooks.Config{
			EnvScript:    r.EnvScript,
			InitManifest: r.InitManifest,
			TmuxSession:  r.TmuxSession,
		}),
	)

	orch := orchestrator.New(orchestrator.Config{
		RunTests:    r.RunTests,
		SystemTests: r.SystemTests,
		TestType:    r.TestType,
		Targets:     r.Targets,
		Profile: selector.Profile{
			CI:           r.CI,
			Integrations: integrations,
		},
		SourcesDir: r.SourcesDir,
		Shell:      r.Shell,
		// in the interactive fallback the residual positionals are
		// forwarded to the shell rather than treated as test targets
		ShellArgs: r.Targets,
	},
		b,
		runner.New("ci-tests", r.CIRunner),
		runner.New("system-tests", r.SystemRunner),
	)

	code, err := orch.Run(ctx)
	if err != nil {
		return err
	}
	if code != 0 {
		return &orchestrator.ExitError{Code: code}
	}
	return nil
}
