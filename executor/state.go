package executor

import "fmt"

// State is a step of a trial's lifecycle.
type State int

const (
	Created State = iota
	TrialSetup
	WarmupIteration
	MeasurementIteration
	TrialTeardown
	Reported
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case TrialSetup:
		return "trial-setup"
	case WarmupIteration:
		return "warmup"
	case MeasurementIteration:
		return "measurement"
	case TrialTeardown:
		return "trial-teardown"
	case Reported:
		return "reported"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// A failed trial setup skips straight to Reported; any later failure still
// passes through TrialTeardown.
var transitions = map[State][]State{
	Created:              {TrialSetup},
	TrialSetup:           {WarmupIteration, MeasurementIteration, Reported},
	WarmupIteration:      {WarmupIteration, MeasurementIteration, TrialTeardown},
	MeasurementIteration: {MeasurementIteration, TrialTeardown},
	TrialTeardown:        {Reported},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}

	return false
}

type stateMachine struct {
	state   State
	history []State
}

func (m *stateMachine) to(next State) {
	if !canTransition(m.state, next) {
		panic(fmt.Sprintf("executor: illegal transition %s -> %s", m.state, next))
	}

	m.state = next
	m.history = append(m.history, next)
}
