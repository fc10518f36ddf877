package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/preflight/cmd/preflight/internal/commands"
	"github.com/wolfeidau/preflight/internal/orchestrator"
)

var (
	version = "dev"
	cli     struct {
		Run     commands.RunCmd  `cmd:"" default:"withargs" help:"Bootstrap the CI environment and dispatch the test run"`
		Plan    commands.PlanCmd `cmd:"" help:"Print the resolved install mode and test selection without side effects"`
		Debug   bool             `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		stop()
		os.Exit(orchestrator.ExitCode(err))
	}
}
