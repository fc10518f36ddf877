package orchestrator

import "fmt"

// State is the orchestrator's lifecycle state. Interactive and Dispatching
// both lead to Terminal; the run's exit code is decided in whichever of the
// two was entered.
type State int

const (
	StateBootstrapping State = iota
	StateValidating
	StateInteractive
	StateDispatching
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateValidating:
		return "validating"
	case StateInteractive:
		return "interactive"
	case StateDispatching:
		return "dispatching"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal is reachable from every live state: a failed run ends there the
// same way a finished one does.
func allowedTransition(from, to State) bool {
	if to == StateTerminal {
		return from != StateTerminal
	}
	switch from {
	case StateBootstrapping:
		return to == StateValidating
	case StateValidating:
		return to == StateInteractive || to == StateDispatching
	default:
		return false
	}
}

// machine performs validated transitions. An invalid transition is a
// programming error, surfaced rather than silently accepted.
type machine struct {
	state State
}

func newMachine() *machine {
	return &machine{state: StateBootstrapping}
}

func (m *machine) transition(to State) error {
	if !allowedTransition(m.state, to) {
		return fmt.Errorf("invalid state transition: %s -> %s", m.state, to)
	}
	m.state = to
	return nil
}
