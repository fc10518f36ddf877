package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/preflight/internal/bootstrap"
	"github.com/wolfeidau/preflight/internal/selector"
)

type fakeBootstrapper struct {
	err    error
	called bool
}

func (f *fakeBootstrapper) Run(ctx context.Context) error {
	f.called = true
	return f.err
}

type fakeRunner struct {
	name   string
	code   int
	err    error
	args   []string
	called bool
}

func (f *fakeRunner) Name() string { return f.name }

func (f *fakeRunner) Run(ctx context.Context, args []string, env map[string]string) (int, error) {
	f.called = true
	f.args = args
	return f.code, f.err
}

func TestStateMachine(t *testing.T) {
	t.Run("valid path through dispatching", func(t *testing.T) {
		m := newMachine()
		require.NoError(t, m.transition(StateValidating))
		require.NoError(t, m.transition(StateDispatching))
		require.NoError(t, m.transition(StateTerminal))
	})

	t.Run("valid path through interactive", func(t *testing.T) {
		m := newMachine()
		require.NoError(t, m.transition(StateValidating))
		require.NoError(t, m.transition(StateInteractive))
		require.NoError(t, m.transition(StateTerminal))
	})

	t.Run("terminal reachable from every live state", func(t *testing.T) {
		for _, from := range []State{StateBootstrapping, StateValidating, StateInteractive, StateDispatching} {
			m := &machine{state: from}
			require.NoError(t, m.transition(StateTerminal), from)
		}
	})

	t.Run("invalid transitions rejected", func(t *testing.T) {
		m := newMachine()
		require.Error(t, m.transition(StateDispatching))
		require.Error(t, m.transition(StateInteractive))

		require.NoError(t, m.transition(StateValidating))
		require.NoError(t, m.transition(StateInteractive))
		require.Error(t, m.transition(StateDispatching))

		require.NoError(t, m.transition(StateTerminal))
		require.Error(t, m.transition(StateTerminal))
	})
}

func TestRun_DispatchesToCIRunner(t *testing.T) {
	ci := &fakeRunner{name: "ci-tests", code: 0}
	system := &fakeRunner{name: "system-tests"}

	o := New(Config{RunTests: true, TestType: "Postgres"}, &fakeBootstrapper{}, ci, system)
	code, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	assert.True(t, ci.called)
	assert.False(t, system.called)
	assert.Contains(t, ci.args, "--backend")
	assert.Contains(t, ci.args, "postgres")
	assert.Equal(t, "tests", ci.args[len(ci.args)-1])
}

func TestRun_SystemTestsSwitch(t *testing.T) {
	ci := &fakeRunner{name: "ci-tests"}
	system := &fakeRunner{name: "system-tests", code: 3}

	o := New(Config{RunTests: true, SystemTests: true, TestType: "Core"}, &fakeBootstrapper{}, ci, system)
	code, err := o.Run(context.Background())
	require.NoError(t, err)

	// runner exit code propagates verbatim
	assert.Equal(t, 3, code)
	assert.True(t, system.called)
	assert.False(t, ci.called)
}

func TestRun_ExplicitTargetsOverrideTaxonomy(t *testing.T) {
	ci := &fakeRunner{name: "ci-tests"}

	o := New(Config{
		RunTests: true,
		TestType: "Quarantined",
		Targets:  []string{"tests/operators"},
	}, &fakeBootstrapper{}, ci, &fakeRunner{name: "system-tests"})

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tests/operators", ci.args[len(ci.args)-1])
	assert.NotContains(t, ci.args, "--include-quarantined")
}

func TestRun_UnknownTestType(t *testing.T) {
	ci := &fakeRunner{name: "ci-tests"}
	b := &fakeBootstrapper{}

	o := New(Config{RunTests: true, TestType: "Smoke"}, b, ci, &fakeRunner{name: "system-tests"})
	code, err := o.Run(context.Background())

	var unknown *selector.UnknownTestTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, 1, code)

	// a configuration error fires before any side effect: the environment
	// must not have been bootstrapped for a test type that cannot run
	assert.False(t, b.called)
	assert.False(t, ci.called)
}

func TestRun_BootstrapFailureAbortsDispatch(t *testing.T) {
	ci := &fakeRunner{name: "ci-tests"}
	b := &fakeBootstrapper{err: &bootstrap.StepError{Step: "validate-environment", Status: 9}}

	o := New(Config{RunTests: true, TestType: "Core"}, b, ci, &fakeRunner{name: "system-tests"})
	code, err := o.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, 9, code)
	assert.False(t, ci.called)
}

func TestRun_InteractiveFallback(t *testing.T) {
	o := New(Config{
		RunTests:  false,
		Shell:     "sh",
		ShellArgs: []string{"-c", "exit 5"},
	}, &fakeBootstrapper{}, &fakeRunner{name: "ci-tests"}, &fakeRunner{name: "system-tests"})

	code, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, code)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))
	assert.Equal(t, 4, ExitCode(&bootstrap.StepError{Step: "x", Status: 4}))
	assert.Equal(t, 1, ExitCode(&selector.UnknownTestTypeError{Value: "Smoke"}))
}
