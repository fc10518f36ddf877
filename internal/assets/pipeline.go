// Package assets builds the frontend production bundle when the installed
// package is missing its built output. The bundle itself is opaque to the
// bootstrap; this package only fetches dependencies and runs the build.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	consolestream "github.com/wolfeidau/console-stream"
)

// Pipeline manages the frontend dependency fetch and production build.
type Pipeline struct {
	config Config
}

// New creates a new asset pipeline with the given configuration
func New(config Config) *Pipeline {
	return &Pipeline{config: config}
}

// Missing reports whether the built output is absent, which is what decides
// whether the pipeline runs at all.
func (p *Pipeline) Missing() bool {
	outDir := filepath.Join(p.config.SourceDir, p.config.OutputDir)
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return true
	}
	return len(entries) == 0
}

// FetchDependencies runs the frontend package manager in the source dir,
// streaming its output to the console.
func (p *Pipeline) FetchDependencies(ctx context.Context) error {
	pm := p.config.PackageManager
	if pm == "" {
		pm = "yarn"
	}

	log.Info().Str("package_manager", pm).Str("dir", p.config.SourceDir).Msg("fetching frontend dependencies")

	process := consolestream.NewProcess(pm, []string{"install", "--frozen-lockfile", "--cwd", p.config.SourceDir},
		consolestream.WithPipeMode(),
		consolestream.WithFlushInterval(time.Second),
	)

	for event, err := range process.ExecuteAndStream(ctx) {
		if err != nil {
			return fmt.Errorf("dependency fetch failed: %w", err)
		}
		switch e := event.Event.(type) {
		case *consolestream.OutputData:
			if _, err := os.Stdout.Write(e.Data); err != nil {
				log.Warn().Err(err).Msg("failed to write fetch output")
			}
		case *consolestream.ProcessEnd:
			if e.ExitCode != 0 {
				return fmt.Errorf("dependency fetch exited with code %d", e.ExitCode)
			}
			return nil
		}
	}
	return errors.New("dependency fetch ended without a process end event")
}

// Build runs esbuild with the configured settings and writes the metafile
func (p *Pipeline) Build() error {
	entryPoints, err := filepath.Glob(filepath.Join(p.config.SourceDir, p.config.EntryPointGlob))
	if err != nil {
		return err
	}

	if len(entryPoints) == 0 {
		return errors.New("no entry points found")
	}

	log.Info().Strs("entrypoints", entryPoints).Msg("Building assets")

	result := api.Build(api.BuildOptions{
		EntryPoints:       entryPoints,
		Bundle:            true,
		Splitting:         true,
		Write:             true,
		JSX:               api.JSXAutomatic,
		Outdir:            filepath.Join(p.config.SourceDir, p.config.OutputDir),
		Format:            api.FormatESModule,
		MinifyWhitespace:  p.config.Minify,
		MinifyIdentifiers: p.config.Minify,
		MinifySyntax:      p.config.Minify,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         cond(p.config.SourceMap, api.SourceMapLinked, api.SourceMapNone),
		Metafile:          true,
	})

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("error", msg.Text).Msg("Build error")
		}
		return errors.New("esbuild failed with errors")
	}

	for _, file := range result.OutputFiles {
		log.Info().Str("file", file.Path).Msg("Built file")
	}

	metafile := filepath.Join(p.config.SourceDir, p.config.MetafilePath)
	if err := os.WriteFile(metafile, []byte(result.Metafile), 0600); err != nil {
		return err
	}

	return nil
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
