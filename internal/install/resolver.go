// Package install decides how the package under test is placed into the
// runtime: keep the existing installation, strip it, install a locally
// built wheel or sdist, or install a published release.
package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/preflight/internal/dist"
	"github.com/wolfeidau/preflight/internal/pip"
	"github.com/wolfeidau/preflight/internal/telemetry"
)

// AssetPipeline is the frontend build collaborator, invoked only when the
// existing installation is missing its built frontend assets.
type AssetPipeline interface {
	Missing() bool
	FetchDependencies(ctx context.Context) error
	Build() error
}

// Config carries the resolver's immutable inputs.
type Config struct {
	// PrimaryPackage is the distribution name of the package under test.
	PrimaryPackage string
	// ProviderPrefix identifies provider/plugin packages in the freeze
	// listing, e.g. "apache-airflow-backport-providers".
	ProviderPrefix string
	// Extras requested alongside the primary package.
	Extras pip.Extras
	// DistDir holds locally built artifacts for wheel/sdist modes.
	DistDir string
	// HomeDir is the working home whose log and temp dirs are recreated
	// when the existing installation is reused.
	HomeDir string
}

// Resolver applies a parsed install mode by driving the package installer.
type Resolver struct {
	installer pip.Installer
	assets    AssetPipeline
	cfg       Config
}

func NewResolver(installer pip.Installer, assets AssetPipeline, cfg Config) *Resolver {
	return &Resolver{installer: installer, assets: assets, cfg: cfg}
}

// Apply performs the install actions for spec. Any installer failure is
// fatal for the run; no retries.
func (r *Resolver) Apply(ctx context.Context, spec ModeSpec) error {
	log.Info().Str("mode", spec.Mode.String()).Str("version", spec.Version).Msg("applying install mode")

	telemetry.GetMetrics().InstallActionsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("mode", spec.Mode.String())))

	switch spec.Mode {
	case ModeAlreadyInstalled:
		return r.useExisting(ctx)

	case ModeNone:
		return r.uninstallAll(ctx)

	case ModeWheel:
		return r.installLocal(ctx, dist.FormatWheel)

	case ModeSdist:
		return r.installLocal(ctx, dist.FormatSdist)

	case ModeVersioned:
		if err := r.installer.InstallRelease(ctx, r.cfg.PrimaryPackage, spec.Version, r.cfg.Extras); err != nil {
			return fmt.Errorf("failed to install release %s: %w", spec.Version, err)
		}
		return nil

	default:
		return fmt.Errorf("unhandled install mode %s", spec.Mode)
	}
}

// useExisting keeps the present installation. When the frontend bundle is
// absent it is built once, and the log and temp directories are recreated
// to drop state left by the image build.
func (r *Resolver) useExisting(ctx context.Context) error {
	if r.assets == nil || !r.assets.Missing() {
		return nil
	}

	log.Info().Msg("frontend assets missing, building production bundle")
	if err := r.assets.FetchDependencies(ctx); err != nil {
		return fmt.Errorf("failed to fetch frontend dependencies: %w", err)
	}
	if err := r.assets.Build(); err != nil {
		return fmt.Errorf("failed to build frontend assets: %w", err)
	}

	for _, sub := range []string{"logs", "tmp"} {
		dir := filepath.Join(r.cfg.HomeDir, sub)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clear %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to recreate %s: %w", dir, err)
		}
	}
	return nil
}

// installLocal installs the primary package from the dist directory with
// extras, stripping any preinstalled copies first. Providers are removed
// again afterwards: they are expected to arrive separately from the dist
// directory, and the artifact install may have pulled published ones in.
func (r *Resolver) installLocal(ctx context.Context, format dist.Format) error {
	if err := r.uninstallAll(ctx); err != nil {
		return err
	}

	artifact, err := r.findPrimaryArtifact(format)
	if err != nil {
		return err
	}

	if err := r.installer.InstallArtifact(ctx, artifact, r.cfg.Extras); err != nil {
		return fmt.Errorf("failed to install %s: %w", artifact, err)
	}

	return r.uninstallProviders(ctx)
}

func (r *Resolver) uninstallAll(ctx context.Context) error {
	providers, err := r.installer.ListInstalled(ctx, r.cfg.ProviderPrefix)
	if err != nil {
		return fmt.Errorf("failed to list provider packages: %w", err)
	}
	pkgs := append([]string{r.cfg.PrimaryPackage}, providers...)
	if err := r.installer.Uninstall(ctx, pkgs...); err != nil {
		return fmt.Errorf("failed to uninstall %s and providers: %w", r.cfg.PrimaryPackage, err)
	}
	return nil
}

func (r *Resolver) uninstallProviders(ctx context.Context) error {
	providers, err := r.installer.ListInstalled(ctx, r.cfg.ProviderPrefix)
	if err != nil {
		return fmt.Errorf("failed to list provider packages: %w", err)
	}
	if len(providers) == 0 {
		return nil
	}
	if err := r.installer.Uninstall(ctx, providers...); err != nil {
		return fmt.Errorf("failed to uninstall providers: %w", err)
	}
	return nil
}

// findPrimaryArtifact locates the single primary-package artifact of the
// given format in the dist directory.
func (r *Resolver) findPrimaryArtifact(format dist.Format) (string, error) {
	pkgs, err := dist.Scan(r.cfg.DistDir, r.cfg.PrimaryPackage)
	if err != nil {
		return "", fmt.Errorf("failed to scan dist directory: %w", err)
	}

	var matches []string
	for _, pkg := range pkgs {
		if pkg.Primary && pkg.Format == format {
			matches = append(matches, pkg.Path)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: format %s in %s", ErrArtifactNotFound, format, r.cfg.DistDir)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %v", ErrAmbiguousArtifact, matches)
	}
}
