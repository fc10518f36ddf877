// Package selector maps the declarative test-type taxonomy onto a concrete
// target list and runner-argument set. Selection is pure: the same inputs
// always produce the same output.
package selector

import "fmt"

const (
	allTestsRoot  = "tests"
	helmTestsRoot = "chart/tests"
)

// Selection is the resolved target list and the type-specific extra args.
type Selection struct {
	TestType TestType
	Targets  []string
	TypeArgs []string
}

// Select resolves targets and type-specific args. Explicit targets override
// the taxonomy entirely: they become the target list and no type-specific
// args are added.
func Select(testType TestType, explicitTargets []string) Selection {
	if len(explicitTargets) > 0 {
		return Selection{TestType: testType, Targets: explicitTargets}
	}

	sel := Selection{TestType: testType, Targets: []string{allTestsRoot}}
	switch testType {
	case TypeCore, TypeAll, TypeIntegration:
		// full tree, no extra markers
	case TypeHelm:
		sel.Targets = []string{helmTestsRoot}
	case TypeQuarantined:
		sel.TypeArgs = []string{"-m", "quarantined", "--include-quarantined"}
	case TypePostgres:
		sel.TypeArgs = []string{"--backend", "postgres"}
	case TypeMySQL:
		sel.TypeArgs = []string{"--backend", "mysql"}
	case TypeHeisentests:
		sel.TypeArgs = []string{"-m", "heisentests", "--include-heisentests"}
	case TypeLong:
		sel.TypeArgs = []string{"-m", "long_running", "--include-long-running"}
	}
	return sel
}

// Profile configures the argument sets that surround the selection.
type Profile struct {
	// CI enables the CI argument profile.
	CI bool
	// Integrations get a "--integration <name>" pair each, independent of
	// the test type.
	Integrations []string

	CoverageSource string
	CoverageConfig string
	CoverageReport string
	JUnitReport    string
	MaxFail        int
	// per-test timeouts, in seconds
	SetupTimeout     int
	ExecutionTimeout int
	TeardownTimeout  int
}

func (p *Profile) applyDefaults() {
	if p.CoverageSource == "" {
		p.CoverageSource = "airflow"
	}
	if p.CoverageConfig == "" {
		p.CoverageConfig = ".coveragerc"
	}
	if p.CoverageReport == "" {
		p.CoverageReport = "files/coverage.xml"
	}
	if p.JUnitReport == "" {
		p.JUnitReport = "files/test_result.xml"
	}
	if p.MaxFail == 0 {
		p.MaxFail = 50
	}
	if p.SetupTimeout == 0 {
		p.SetupTimeout = 10
	}
	if p.ExecutionTimeout == 0 {
		p.ExecutionTimeout = 30
	}
	if p.TeardownTimeout == 0 {
		p.TeardownTimeout = 10
	}
}

// BuildArgs assembles the final runner arguments in fixed precedence: base
// flags, CI-only flags, type-specific flags, integration flags, then the
// positional targets.
func BuildArgs(sel Selection, prof Profile) []string {
	prof.applyDefaults()

	// compact failure report, always
	args := []string{"-rfEX"}

	if prof.CI {
		args = append(args,
			"--verbosity=0",
			"--strict-markers",
			"--durations=100",
			"--cov="+prof.CoverageSource,
			"--cov-config="+prof.CoverageConfig,
			"--cov-report=xml:"+prof.CoverageReport,
			"--junitxml="+prof.JUnitReport,
			"--color=yes",
			fmt.Sprintf("--maxfail=%d", prof.MaxFail),
			"--pythonwarnings=ignore::DeprecationWarning",
			"--pythonwarnings=ignore::PendingDeprecationWarning",
			fmt.Sprintf("--setup-timeout=%d", prof.SetupTimeout),
			fmt.Sprintf("--execution-timeout=%d", prof.ExecutionTimeout),
			fmt.Sprintf("--teardown-timeout=%d", prof.TeardownTimeout),
		)
		// helm chart tests have no database to initialize
		if sel.TestType != TypeHelm {
			args = append(args, "--with-db-init")
		}
	}

	args = append(args, sel.TypeArgs...)

	for _, name := range prof.Integrations {
		args = append(args, "--integration", name)
	}

	return append(args, sel.Targets...)
}
