package dist

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/preflight/internal/pip"
	"github.com/wolfeidau/preflight/internal/telemetry"
)

// Installer installs locally built artifacts from a dist directory.
type Installer struct {
	installer      pip.Installer
	primaryPackage string
}

// NewInstaller returns an Installer that detects primaryPackage artifacts
// during scanning.
func NewInstaller(installer pip.Installer, primaryPackage string) *Installer {
	return &Installer{installer: installer, primaryPackage: primaryPackage}
}

// InstallFromDirectory installs the artifacts in dir matching filter as one
// batch with dependency resolution disabled. When skipPrimaryWheel is set,
// the primary package's wheel is skipped: it was already installed with
// extras, and reinstalling it plainly would clobber that install. Zero
// matching artifacts is a no-op, not an error.
func (i *Installer) InstallFromDirectory(ctx context.Context, dir string, filter Format, skipPrimaryWheel bool) error {
	// The CLI layer already rejects "both"; re-check before any side effect.
	if filter == FormatBoth {
		return ErrBothFormats
	}

	pkgs, err := Scan(dir, i.primaryPackage)
	if err != nil {
		return err
	}

	var paths []string
	for _, pkg := range pkgs {
		if skipPrimaryWheel && pkg.Primary && pkg.Format == FormatWheel {
			log.Info().Str("artifact", pkg.Path).Msg("skipping primary package wheel, already installed with extras")
			continue
		}
		if pkg.Format != filter {
			continue
		}
		paths = append(paths, pkg.Path)
	}

	if len(paths) == 0 {
		log.Info().Str("dir", dir).Str("format", filter.String()).Msg("no dist artifacts to install")
		return nil
	}

	if err := i.installer.InstallBatch(ctx, paths); err != nil {
		return err
	}

	telemetry.GetMetrics().DistArtifactsInstalled.Add(ctx, int64(len(paths)),
		metric.WithAttributes(attribute.String("format", filter.String())))
	return nil
}
