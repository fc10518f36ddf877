package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfeidau/preflight/internal/dist"
	"github.com/wolfeidau/preflight/internal/install"
	"github.com/wolfeidau/preflight/internal/pip"
	"github.com/wolfeidau/preflight/internal/selector"
)

// PlanCmd prints the resolved install mode, dist-install decision, and test
// selection without performing any side effect. Useful when debugging why a
// CI run installed or selected what it did.
type PlanCmd struct {
	PackageVersion  string   `help:"Install mode specifier." env:"PREFLIGHT_PACKAGE_VERSION" default:""`
	PackageExtras   string   `help:"Comma-separated extras." env:"PREFLIGHT_PACKAGE_EXTRAS" default:""`
	PackageFormat   string   `help:"Artifact format for dist-directory installs." enum:"wheel,sdist,both" env:"PREFLIGHT_PACKAGE_FORMAT" default:"wheel"`
	InstallFromDist bool     `help:"Install locally built artifacts from the dist directory." env:"PREFLIGHT_INSTALL_FROM_DIST"`
	TestType        string   `help:"Test type to resolve." env:"PREFLIGHT_TEST_TYPE" default:"All"`
	Integrations    string   `help:"Space-separated integration names." env:"PREFLIGHT_INTEGRATION_TESTS" default:""`
	CI              bool     `help:"Enable the CI argument profile." env:"CI"`
	Targets         []string `arg:"" optional:"" help:"Explicit test targets; overrides the test type."`
}

// Validate applies the same configuration gate as the run command.
func (p *PlanCmd) Validate() error {
	if p.InstallFromDist && p.PackageFormat == "both" {
		return fmt.Errorf("package format %q: installing from the dist directory requires exactly one artifact format", p.PackageFormat)
	}
	return nil
}

func (p *PlanCmd) Run(ctx context.Context, globals *Globals) error {
	plan, err := p.resolve()
	if err != nil {
		return err
	}
	fmt.Print(plan)
	return nil
}

// resolve renders the plan the run command would execute, one decision per
// line.
func (p *PlanCmd) resolve() (string, error) {
	mode := install.ParseModeSpec(p.PackageVersion)
	extras := pip.ParseExtras(p.PackageExtras)
	format, err := dist.ParseFormat(p.PackageFormat)
	if err != nil {
		return "", err
	}

	testType, err := selector.ParseTestType(p.TestType)
	if err != nil {
		return "", err
	}

	integrations := strings.Fields(p.Integrations)
	sel := selector.Select(testType, p.Targets)
	args := selector.BuildArgs(sel, selector.Profile{CI: p.CI, Integrations: integrations})

	var b strings.Builder
	fmt.Fprintf(&b, "Install mode: %s\n", mode.Mode)
	if mode.Version != "" {
		fmt.Fprintf(&b, "Release version: %s\n", mode.Version)
	}
	fmt.Fprintf(&b, "Extras: %s\n", extras.Render())
	if p.InstallFromDist {
		fmt.Fprintf(&b, "Dist install: yes (format %s, skip primary wheel: %t)\n", format, mode.Mode == install.ModeWheel)
	} else {
		fmt.Fprintln(&b, "Dist install: no")
	}
	fmt.Fprintf(&b, "Test type: %s\n", testType)
	fmt.Fprintf(&b, "Targets: %s\n", strings.Join(sel.Targets, " "))
	fmt.Fprintf(&b, "Runner args: %s\n", strings.Join(args, " "))

	return b.String(), nil
}
