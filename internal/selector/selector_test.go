package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTestType(t *testing.T) {
	for _, name := range []string{"Core", "Helm", "All", "Quarantined", "Postgres", "MySQL", "Heisentests", "Long", "Integration"} {
		tt, err := ParseTestType(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, tt.String())
	}

	t.Run("unknown value", func(t *testing.T) {
		_, err := ParseTestType("Smoke")
		var unknown *UnknownTestTypeError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "Smoke", unknown.Value)
		assert.Equal(t, 1, unknown.ExitCode())
		assert.Contains(t, err.Error(), "Smoke")
	})
}

func TestSelect(t *testing.T) {
	t.Run("core targets the full tree with no extra args", func(t *testing.T) {
		sel := Select(TypeCore, nil)
		assert.Equal(t, []string{"tests"}, sel.Targets)
		assert.Empty(t, sel.TypeArgs)
	})

	t.Run("helm targets the chart tests", func(t *testing.T) {
		sel := Select(TypeHelm, nil)
		assert.Equal(t, []string{"chart/tests"}, sel.Targets)
		assert.Empty(t, sel.TypeArgs)
	})

	t.Run("type-specific args", func(t *testing.T) {
		for _, tc := range []struct {
			testType TestType
			want     []string
		}{
			{TypeQuarantined, []string{"-m", "quarantined", "--include-quarantined"}},
			{TypePostgres, []string{"--backend", "postgres"}},
			{TypeMySQL, []string{"--backend", "mysql"}},
			{TypeHeisentests, []string{"-m", "heisentests", "--include-heisentests"}},
			{TypeLong, []string{"-m", "long_running", "--include-long-running"}},
			{TypeAll, nil},
			{TypeIntegration, nil},
		} {
			sel := Select(tc.testType, nil)
			assert.Equal(t, []string{"tests"}, sel.Targets, tc.testType)
			assert.Equal(t, tc.want, sel.TypeArgs, tc.testType)
		}
	})

	t.Run("explicit targets override taxonomy", func(t *testing.T) {
		for _, tt := range []TestType{TypeCore, TypeHelm, TypePostgres, TypeQuarantined} {
			sel := Select(tt, []string{"tests/operators", "tests/sensors"})
			assert.Equal(t, []string{"tests/operators", "tests/sensors"}, sel.Targets, tt)
			assert.Empty(t, sel.TypeArgs, tt)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Select(TypeLong, nil), Select(TypeLong, nil))
	})
}

func TestBuildArgs(t *testing.T) {
	t.Run("base profile is just the failure report plus targets", func(t *testing.T) {
		args := BuildArgs(Select(TypeCore, nil), Profile{})
		assert.Equal(t, []string{"-rfEX", "tests"}, args)
	})

	t.Run("ci profile", func(t *testing.T) {
		args := BuildArgs(Select(TypePostgres, nil), Profile{CI: true})

		assert.Equal(t, "-rfEX", args[0])
		assert.Contains(t, args, "--strict-markers")
		assert.Contains(t, args, "--durations=100")
		assert.Contains(t, args, "--cov=airflow")
		assert.Contains(t, args, "--junitxml=files/test_result.xml")
		assert.Contains(t, args, "--maxfail=50")
		assert.Contains(t, args, "--setup-timeout=10")
		assert.Contains(t, args, "--execution-timeout=30")
		assert.Contains(t, args, "--teardown-timeout=10")
		assert.Contains(t, args, "--with-db-init")

		// backend selector present and ordered before the targets
		require.Equal(t, "tests", args[len(args)-1])
		assert.Contains(t, args, "--backend")
		assert.Contains(t, args, "postgres")
	})

	t.Run("helm omits the db-init flag", func(t *testing.T) {
		args := BuildArgs(Select(TypeHelm, nil), Profile{CI: true})
		assert.NotContains(t, args, "--with-db-init")
		assert.Equal(t, "chart/tests", args[len(args)-1])
	})

	t.Run("integration pairs appended for any test type", func(t *testing.T) {
		args := BuildArgs(Select(TypeCore, nil), Profile{Integrations: []string{"mongo", "redis"}})
		assert.Equal(t, []string{"-rfEX", "--integration", "mongo", "--integration", "redis", "tests"}, args)
	})

	t.Run("precedence: base, ci, type, integration, targets", func(t *testing.T) {
		args := BuildArgs(Select(TypeMySQL, nil), Profile{CI: true, Integrations: []string{"mongo"}})

		backend := indexOf(t, args, "--backend")
		integration := indexOf(t, args, "--integration")
		target := indexOf(t, args, "tests")
		dbInit := indexOf(t, args, "--with-db-init")

		assert.Less(t, dbInit, backend)
		assert.Less(t, backend, integration)
		assert.Less(t, integration, target)
	})
}

func indexOf(t *testing.T, args []string, want string) int {
	t.Helper()
	for i, a := range args {
		if a == want {
			return i
		}
	}
	t.Fatalf("%q not found in %v", want, args)
	return -1
}
